package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mandi/pkg/audit"
	"mandi/pkg/auth"
	"mandi/pkg/gate"
	"mandi/pkg/httpx"
	"mandi/pkg/roles"
	"mandi/pkg/stream"
)

// resolve turns the verified identity into a gate resolution via the account
// directory. A read failure resolves nothing; the caller treats that
// restrictively.
func (s *Server) resolve(ctx context.Context, uid string) (gate.Resolution, error) {
	account, err := s.Accounts.Account(ctx, uid)
	if err != nil {
		return gate.Resolution{}, err
	}
	return gate.Resolution{Role: account.Role, OrgID: account.OrgID, Resolved: true}, nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := s.resolve(r.Context(), id.UID)
	if err != nil {
		log.Printf("me: account read for %s failed: %v", id.UID, err)
		httpx.Error(w, http.StatusServiceUnavailable, "directory unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"uid":            id.UID,
		"email":          id.Email,
		"email_verified": id.EmailVerified,
		"role":           res.Role.String(),
		"org_id":         res.OrgID,
	})
}

func (s *Server) handleRegionAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	regionID := chi.URLParam(r, "region_id")
	region, ok := s.Regions.Region(regionID)
	if !ok {
		httpx.Error(w, http.StatusNotFound, "unknown region")
		return
	}
	requestedPath := r.URL.Query().Get("path")
	if requestedPath == "" {
		requestedPath = "/" + regionID
	}

	res, err := s.resolve(r.Context(), id.UID)
	var decision gate.Decision
	if err != nil {
		// A failed role lookup must never widen access; deny at the
		// first gate.
		log.Printf("region access: account read for %s failed: %v", id.UID, err)
		res.Role = roles.Unassigned
		decision = gate.Deny(gate.ReasonRoleMismatch, region.UnauthorizedFallbackRoute, &gate.DenyState{
			RequestedPath: requestedPath,
			FallbackRoute: region.UnauthorizedFallbackRoute,
			AllowedRoles:  region.AllowedRoles.Members(),
		})
	} else {
		sess := s.Sessions.Session(id.UID)
		decision = s.Chain.EvaluateRegion(r.Context(), sess, res, requestedPath, region)
	}
	if r.Context().Err() != nil {
		// Caller is gone; a stale redirect must not be recorded as theirs.
		return
	}

	s.Metrics.IncDecision(decision.Kind, decision.Reason)
	s.Events.Publish(stream.NewEvent(stream.EventDecision, map[string]any{
		"region":   regionID,
		"decision": decision.Kind,
		"reason":   decision.Reason,
		"role":     res.Role.String(),
	}))
	if decision.Denied() || s.AuditPermits {
		rec := audit.Record{
			DecisionID: uuid.NewString(),
			UIDHash:    s.Audit.HashUID(id.UID),
			Region:     regionID,
			Role:       res.Role.String(),
			Decision:   decision.Kind,
			Reason:     decision.Reason,
			Route:      decision.Route,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.Audit.Append(r.Context(), rec); err != nil {
			log.Printf("region access: audit append failed: %v", err)
		}
	}

	status := http.StatusOK
	if decision.Denied() {
		status = http.StatusForbidden
	}
	httpx.WriteJSON(w, status, decision)
}

func (s *Server) handlePremiumContinue(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess := s.Sessions.Session(id.UID)
	route, resumed := s.Chain.Premium.Continue(sess)
	s.Events.Publish(stream.NewEvent(stream.EventConsent, map[string]any{
		"action":  "continue",
		"resumed": resumed,
	}))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"resumed": resumed,
		"route":   route,
	})
}

func (s *Server) handlePremiumDismiss(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.Chain.Premium.Dismiss(s.Sessions.Session(id.UID))
	s.Events.Publish(stream.NewEvent(stream.EventConsent, map[string]any{"action": "dismiss"}))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"dismissed": true})
}

// withRoles guards back-office endpoints on the caller's resolved role.
func (s *Server) withRoles(h http.HandlerFunc, allowed ...roles.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		res, err := s.resolve(r.Context(), id.UID)
		if err != nil {
			log.Printf("role guard: account read for %s failed: %v", id.UID, err)
			httpx.Error(w, http.StatusForbidden, "forbidden")
			return
		}
		for _, role := range allowed {
			if res.Role == role {
				h(w, r)
				return
			}
		}
		httpx.Error(w, http.StatusForbidden, "forbidden")
	}
}

func (s *Server) streamDecisions(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "stream unavailable")
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub := s.Events.Subscribe(64)
	defer s.Events.Unsubscribe(sub)

	_ = wsjson.Write(ctx, conn, stream.NewEvent("ready", nil))
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}
