package gate

import "mandi/pkg/roles"

// Resolution is the role-lookup input to the gates. Resolved is false while
// the account read is still in flight; downstream gates must not run until it
// is true.
type Resolution struct {
	Role     roles.Role
	OrgID    string
	Resolved bool
}

// EvaluateRole is the pure role gate: permit iff the resolved role is in the
// region's allowed set. Unassigned callers are sent to registration; everyone
// else to the region's fallback route.
func EvaluateRole(res Resolution, requestedPath string, region roles.ProtectedRegion) Decision {
	if !res.Resolved {
		return Loading()
	}
	if region.AllowedRoles.Contains(res.Role) {
		return Permit()
	}
	route := region.UnauthorizedFallbackRoute
	if res.Role == roles.Unassigned {
		route = roles.RegistrationRoute
	}
	return Deny(ReasonRoleMismatch, route, &DenyState{
		RequestedPath: requestedPath,
		FallbackRoute: route,
		CTALabel:      region.CTALabel,
		AllowedRoles:  region.AllowedRoles.Members(),
		ActualRole:    res.Role.String(),
	})
}
