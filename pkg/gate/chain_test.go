package gate

import (
	"context"
	"testing"
	"time"

	"mandi/pkg/roles"
	"mandi/pkg/session"
	"mandi/pkg/store"
)

func newTestChain(orgs *countingOrgs, preview bool) *Chain {
	return &Chain{
		Approval: NewApprovalGate(orgs, store.NewMemoryCache(), time.Minute),
		Premium:  &PremiumGate{Registry: FeatureRegistry{"logistics-planner": true}, PreviewEnabled: preview},
	}
}

var chainRegion = roles.ProtectedRegion{
	ID:                        "org-console",
	AllowedRoles:              roles.NewSet(roles.OrgAdmin, roles.OrgStaff),
	UnauthorizedFallbackRoute: "/unauthorized",
	PremiumFeatures:           []string{"logistics-planner"},
}

func TestChainRoleDenyShortCircuits(t *testing.T) {
	orgs := &countingOrgs{status: map[string]string{"org_1": "approved"}}
	c := newTestChain(orgs, true)
	sess := session.NewRegistry(0).Session("u1")
	d := c.EvaluateRegion(context.Background(), sess, Resolution{Role: roles.Farmer, Resolved: true}, "/console", chainRegion)
	if !d.Denied() || d.Reason != ReasonRoleMismatch {
		t.Fatalf("expected role deny, got %+v", d)
	}
	if orgs.callCount() != 0 {
		t.Fatal("approval gate must not run after a role deny")
	}
	if _, ok := sess.PendingIntent(); ok {
		t.Fatal("premium gate must not run after a role deny")
	}
}

func TestChainApprovalDenyBlocksPremium(t *testing.T) {
	orgs := &countingOrgs{status: map[string]string{"org_1": "pending"}}
	c := newTestChain(orgs, true)
	sess := session.NewRegistry(0).Session("u1")
	res := Resolution{Role: roles.OrgAdmin, OrgID: "org_1", Resolved: true}
	d := c.EvaluateRegion(context.Background(), sess, res, "/console", chainRegion)
	if !d.Denied() || d.Reason != ReasonOrgNotApproved {
		t.Fatalf("expected approval deny, got %+v", d)
	}
	if _, ok := sess.PendingIntent(); ok {
		t.Fatal("premium gate must not run after an approval deny")
	}
}

func TestChainLoadingStopsEverything(t *testing.T) {
	orgs := &countingOrgs{}
	c := newTestChain(orgs, true)
	sess := session.NewRegistry(0).Session("u1")
	d := c.EvaluateRegion(context.Background(), sess, Resolution{}, "/console", chainRegion)
	if !d.InFlight() {
		t.Fatalf("expected loading, got %s", d.Kind)
	}
	if orgs.callCount() != 0 {
		t.Fatal("no downstream gate may run while loading")
	}
}

func TestChainPremiumDenyLast(t *testing.T) {
	orgs := &countingOrgs{status: map[string]string{"org_1": "approved"}}
	c := newTestChain(orgs, true)
	sess := session.NewRegistry(0).Session("u1")
	res := Resolution{Role: roles.OrgAdmin, OrgID: "org_1", Resolved: true}
	d := c.EvaluateRegion(context.Background(), sess, res, "/console", chainRegion)
	if !d.Denied() || d.Reason != ReasonFeatureLocked {
		t.Fatalf("expected feature deny, got %+v", d)
	}
}

func TestChainPermitsWhenEveryGateClears(t *testing.T) {
	orgs := &countingOrgs{status: map[string]string{"org_1": "approved"}}
	c := newTestChain(orgs, true)
	sess := session.NewRegistry(0).Session("u1")
	sess.AllowFeature("logistics-planner")
	res := Resolution{Role: roles.OrgStaff, OrgID: "org_1", Resolved: true}
	d := c.EvaluateRegion(context.Background(), sess, res, "/console", chainRegion)
	if !d.Permitted() {
		t.Fatalf("expected permit, got %+v", d)
	}
}
