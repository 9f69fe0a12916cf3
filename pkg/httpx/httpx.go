package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// CORSHeadersFor computes the cross-origin headers for a request origin
// against the ordered allow-list. A listed origin is echoed; an unlisted one
// gets the literal "null" (an explicit deny a cache can tell apart from "no
// origin sent"); no origin falls back to the first listed origin, or "null"
// when the list is empty and everything is denied.
func CORSHeadersFor(requestOrigin string, allowList []string) map[string]string {
	origin := strings.TrimSpace(requestOrigin)
	allowed := "null"
	switch {
	case origin != "":
		for _, candidate := range allowList {
			if candidate == origin {
				allowed = origin
				break
			}
		}
	case len(allowList) > 0:
		allowed = allowList[0]
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  allowed,
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
		"Access-Control-Allow-Headers": "Authorization,Content-Type",
		"Vary":                         "Origin",
	}
}

// ParseOrigins splits a comma-separated allow-list, preserving order.
func ParseOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// CORSMiddleware applies the computed headers to every response, errors
// included, and answers preflight with 204 and no body. Preflight carries no
// credentials, so it is never authenticated.
func CORSMiddleware(allowList []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range CORSHeadersFor(r.Header.Get("Origin"), allowList) {
				h.Set(name, value)
			}
			if r.Method == http.MethodOptions {
				h.Set("X-Content-Type-Options", "nosniff")
				h.Set("Referrer-Policy", "no-referrer")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimitMiddleware caps request bodies. The gateway's own endpoints carry
// no payloads to speak of, so anything large is hostile.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware applies baseline hardening headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]interface{}{"error": msg})
}
