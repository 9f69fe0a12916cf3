package roles

// Routes shared by every gate. RegistrationRoute is where an unassigned caller
// is sent regardless of the region they asked for.
const (
	RegistrationRoute = "/register"
	UnderReviewRoute  = "/organization/under-review"
	NeutralRoute      = "/home"
)

// ProtectedRegion is the static configuration of one protected area of the
// platform. Immutable at runtime.
type ProtectedRegion struct {
	ID                        string
	AllowedRoles              Set
	UnauthorizedFallbackRoute string
	CTALabel                  string
	// PremiumFeatures lists feature ids gated behind entitlement for this
	// region, evaluated only after role and approval checks pass.
	PremiumFeatures []string
}

// Table is the privilege table: the single place mapping protected regions to
// allowed-role sets.
type Table struct {
	regions map[string]ProtectedRegion
}

func NewTable(regions ...ProtectedRegion) *Table {
	t := &Table{regions: make(map[string]ProtectedRegion, len(regions))}
	for _, r := range regions {
		t.regions[r.ID] = r
	}
	return t
}

func (t *Table) Region(id string) (ProtectedRegion, bool) {
	r, ok := t.regions[id]
	return r, ok
}

// DefaultTable is the deployment's region map for the marketplace portals.
func DefaultTable() *Table {
	return NewTable(
		ProtectedRegion{
			ID:                        "farmer-portal",
			AllowedRoles:              NewSet(Farmer, Admin, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
			CTALabel:                  "Go to your marketplace",
			PremiumFeatures:           []string{"market-insights", "price-forecast"},
		},
		ProtectedRegion{
			ID:                        "buyer-portal",
			AllowedRoles:              NewSet(Buyer, Admin, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
			CTALabel:                  "Browse produce listings",
			PremiumFeatures:           []string{"bulk-sourcing"},
		},
		ProtectedRegion{
			ID:                        "org-console",
			AllowedRoles:              NewSet(OrgAdmin, OrgStaff, Admin, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
			CTALabel:                  "Open your organization console",
			PremiumFeatures:           []string{"logistics-planner"},
		},
		ProtectedRegion{
			ID:                        "org-admin-settings",
			AllowedRoles:              NewSet(OrgAdmin, Admin, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
		},
		ProtectedRegion{
			ID:                        "gov-dashboard",
			AllowedRoles:              NewSet(GovAdmin, GovAnalyst, GovViewer, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
			CTALabel:                  "View regional statistics",
		},
		ProtectedRegion{
			ID:                        "gov-admin",
			AllowedRoles:              NewSet(GovAdmin, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
		},
		ProtectedRegion{
			ID:                        "partner-portal",
			AllowedRoles:              NewSet(PartnerAdmin, PartnerAnalyst, PartnerFinance, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
			PremiumFeatures:           []string{"advisory-feed"},
		},
		ProtectedRegion{
			ID:                        "partner-finance",
			AllowedRoles:              NewSet(PartnerAdmin, PartnerFinance, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
		},
		ProtectedRegion{
			ID:                        "back-office",
			AllowedRoles:              NewSet(Admin, Superadmin),
			UnauthorizedFallbackRoute: "/unauthorized",
		},
	)
}
