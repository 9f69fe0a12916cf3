package gate

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"mandi/pkg/directory"
	"mandi/pkg/roles"
	"mandi/pkg/store"
)

const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
	StatusUnknown  = "unknown"
)

const approvalKeyPrefix = "org:verification:"

// NormalizeStatus maps a raw verificationStatus field onto the closed status
// set. Absent or unrecognized values become pending, never approved.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StatusApproved:
		return StatusApproved
	case StatusRejected:
		return StatusRejected
	case StatusUnknown:
		return StatusUnknown
	default:
		return StatusPending
	}
}

// ApprovalGate vets org-scoped roles against their organization's
// verification status. Reads go through a TTL cache; approval changes are
// infrequent administrative events, so stale reads inside the window are
// acceptable.
type ApprovalGate struct {
	Orgs  directory.OrgReader
	Cache store.Cache
	TTL   time.Duration
}

func NewApprovalGate(orgs directory.OrgReader, cache store.Cache, ttl time.Duration) *ApprovalGate {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ApprovalGate{Orgs: orgs, Cache: cache, TTL: ttl}
}

// Evaluate is a no-op permit for roles outside the org-scoped pair. For
// org_admin/org_staff, anything but approved denies toward the under-review
// route, carrying the original path for resume.
func (g *ApprovalGate) Evaluate(ctx context.Context, res Resolution, requestedPath string) Decision {
	if !res.Resolved {
		return Loading()
	}
	if !res.Role.OrgScoped() {
		return Permit()
	}
	status := g.status(ctx, res.OrgID)
	if status == StatusApproved {
		return Permit()
	}
	return Deny(ReasonOrgNotApproved, roles.UnderReviewRoute, &DenyState{
		RequestedPath: requestedPath,
		FallbackRoute: roles.UnderReviewRoute,
		ActualRole:    res.Role.String(),
	})
}

func (g *ApprovalGate) status(ctx context.Context, orgID string) string {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		// Org-scoped account with no organization on record; treat as not
		// yet vetted.
		return StatusPending
	}
	key := approvalKeyPrefix + orgID
	if g.Cache != nil {
		if cached, ok, err := g.Cache.Get(ctx, key); err == nil && ok {
			return cached
		}
	}
	raw, err := g.Orgs.VerificationStatus(ctx, orgID)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		// Fail toward the restrictive state; an outage must never approve.
		log.Printf("approval gate: status read for org %s failed: %v", orgID, err)
		return StatusPending
	}
	status := NormalizeStatus(raw)
	if g.Cache != nil {
		if err := g.Cache.Set(ctx, key, status, g.TTL); err != nil {
			log.Printf("approval gate: cache write for org %s failed: %v", orgID, err)
		}
	}
	return status
}

// Invalidate drops the cached status for an org, used by the verification
// change consumer for prompt convergence without shortening the TTL.
func (g *ApprovalGate) Invalidate(ctx context.Context, orgID string) {
	if g.Cache == nil || strings.TrimSpace(orgID) == "" {
		return
	}
	if err := g.Cache.Del(ctx, approvalKeyPrefix+orgID); err != nil {
		log.Printf("approval gate: invalidate org %s failed: %v", orgID, err)
	}
}
