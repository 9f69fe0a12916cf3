package roles

import "strings"

// Role is the closed taxonomy of platform account roles. Every caller resolves
// to exactly one Role at evaluation time; Unassigned is the default when no
// account record exists.
type Role string

const (
	Farmer         Role = "farmer"
	Buyer          Role = "buyer"
	OrgAdmin       Role = "org_admin"
	OrgStaff       Role = "org_staff"
	GovAdmin       Role = "gov_admin"
	GovAnalyst     Role = "gov_analyst"
	GovViewer      Role = "gov_viewer"
	PartnerAdmin   Role = "partner_admin"
	PartnerAnalyst Role = "partner_analyst"
	PartnerFinance Role = "partner_finance"
	Admin          Role = "admin"
	Superadmin     Role = "superadmin"
	Unassigned     Role = "unassigned"
)

var all = map[Role]struct{}{
	Farmer:         {},
	Buyer:          {},
	OrgAdmin:       {},
	OrgStaff:       {},
	GovAdmin:       {},
	GovAnalyst:     {},
	GovViewer:      {},
	PartnerAdmin:   {},
	PartnerAnalyst: {},
	PartnerFinance: {},
	Admin:          {},
	Superadmin:     {},
	Unassigned:     {},
}

// Parse normalizes a stored role string. Unknown and empty values resolve to
// Unassigned rather than failing, so a malformed account record can never
// widen access.
func Parse(raw string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := all[r]; !ok {
		return Unassigned
	}
	return r
}

func (r Role) String() string { return string(r) }

// OrgScoped reports whether the role is subject to organizational vetting.
func (r Role) OrgScoped() bool {
	return r == OrgAdmin || r == OrgStaff
}

// Set is an allowed-role set for a protected region.
type Set map[Role]struct{}

func NewSet(members ...Role) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func (s Set) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// Members returns the set in stable order for decision payloads.
func (s Set) Members() []string {
	ordered := []Role{
		Farmer, Buyer, OrgAdmin, OrgStaff, GovAdmin, GovAnalyst, GovViewer,
		PartnerAdmin, PartnerAnalyst, PartnerFinance, Admin, Superadmin, Unassigned,
	}
	out := make([]string, 0, len(s))
	for _, r := range ordered {
		if s.Contains(r) {
			out = append(out, string(r))
		}
	}
	return out
}
