package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"
)

// The only two authentication failures visible to callers. Everything the
// verifier learns about why a token failed stays in the logs; returning the
// cause would hand an attacker a probe.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

const DefaultIssuerHost = "securetoken.google.com"

// Verifier validates bearer tokens minted by the external identity provider
// for one project. It never issues tokens.
type Verifier struct {
	ProjectID  string
	IssuerHost string
	Keys       *KeySet
	Now        func() time.Time
	Logf       func(format string, args ...any)
}

func NewVerifier(projectID string, keys *KeySet) *Verifier {
	return &Verifier{ProjectID: projectID, IssuerHost: DefaultIssuerHost, Keys: keys}
}

func (v *Verifier) issuer() string {
	host := v.IssuerHost
	if host == "" {
		host = DefaultIssuerHost
	}
	return "https://" + host + "/" + v.ProjectID
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now().UTC()
}

func (v *Verifier) logf(format string, args ...any) {
	if v.Logf != nil {
		v.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Verify checks an Authorization header value and returns the caller's
// identity. A missing or malformed header is ErrMissingCredential; every
// verification failure, key-set fetch failure included, is
// ErrInvalidCredential.
func (v *Verifier) Verify(ctx context.Context, rawHeaderValue string) (Identity, error) {
	header := strings.TrimSpace(rawHeaderValue)
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return Identity{}, ErrMissingCredential
	}
	token := strings.TrimSpace(header[len("bearer "):])
	if token == "" {
		return Identity{}, ErrMissingCredential
	}
	return v.verifyToken(ctx, token)
}

func (v *Verifier) verifyToken(ctx context.Context, token string) (Identity, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return v.reject("malformed token structure")
	}
	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return v.reject("header decode: %v", err)
	}
	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return v.reject("payload decode: %v", err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return v.reject("signature decode: %v", err)
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		return v.reject("header parse: %v", err)
	}
	if strings.ToUpper(header.Alg) != "RS256" {
		return v.reject("unsupported alg %q", header.Alg)
	}
	if strings.TrimSpace(header.Kid) == "" {
		return v.reject("kid missing")
	}
	pub, err := v.Keys.Key(ctx, header.Kid)
	if err != nil {
		return v.reject("key lookup: %v", err)
	}
	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return v.reject("signature: %v", err)
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadRaw, &claims); err != nil {
		return v.reject("claims parse: %v", err)
	}
	if iss, _ := claims["iss"].(string); iss != v.issuer() {
		return v.reject("issuer mismatch")
	}
	if !audienceContains(claims["aud"], v.ProjectID) {
		return v.reject("audience mismatch")
	}
	exp := numericClaim(claims["exp"])
	if exp == 0 || v.now().Unix() >= exp {
		return v.reject("token expired")
	}
	if nbf := numericClaim(claims["nbf"]); nbf != 0 && v.now().Unix() < nbf {
		return v.reject("token not yet active")
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		// Signature-valid but anonymous; never trusted.
		return v.reject("subject missing")
	}
	email, _ := claims["email"].(string)
	emailVerified, _ := claims["email_verified"].(bool)
	return Identity{
		UID:           sub,
		Email:         email,
		EmailVerified: emailVerified,
		Claims:        claims,
	}, nil
}

func (v *Verifier) reject(format string, args ...any) (Identity, error) {
	v.logf("auth: token rejected: "+format, args...)
	return Identity{}, ErrInvalidCredential
}

func audienceContains(aud any, expected string) bool {
	switch val := aud.(type) {
	case string:
		return val == expected
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && s == expected {
				return true
			}
		}
	}
	return false
}

func numericClaim(raw any) int64 {
	switch val := raw.(type) {
	case float64:
		return int64(val)
	case json.Number:
		n, _ := val.Int64()
		return n
	}
	return 0
}
