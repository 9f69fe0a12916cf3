package gate

const (
	KindLoading = "LOADING"
	KindPermit  = "PERMIT"
	KindDeny    = "DENY"
)

const (
	ReasonRoleMismatch   = "role_mismatch"
	ReasonOrgNotApproved = "org_not_approved"
	ReasonFeatureLocked  = "feature_locked"
)

// DenyState is the payload attached to a denial so a generic unauthorized view
// can explain the mismatch without per-region copy.
type DenyState struct {
	RequestedPath string   `json:"requested_path,omitempty"`
	FallbackRoute string   `json:"fallback_route,omitempty"`
	CTALabel      string   `json:"cta_label,omitempty"`
	AllowedRoles  []string `json:"allowed_roles,omitempty"`
	ActualRole    string   `json:"actual_role,omitempty"`
	FeatureID     string   `json:"feature_id,omitempty"`
	PromptConsent bool     `json:"prompt_consent,omitempty"`
}

// Decision is the outcome of one gate: Loading while an input is still being
// resolved, Permit, or Deny with a machine-readable reason and redirect route.
type Decision struct {
	Kind   string     `json:"decision"`
	Reason string     `json:"reason,omitempty"`
	Route  string     `json:"route,omitempty"`
	State  *DenyState `json:"state,omitempty"`
}

func Loading() Decision { return Decision{Kind: KindLoading} }

func Permit() Decision { return Decision{Kind: KindPermit} }

func Deny(reason, route string, state *DenyState) Decision {
	return Decision{Kind: KindDeny, Reason: reason, Route: route, State: state}
}

func (d Decision) Permitted() bool { return d.Kind == KindPermit }

func (d Decision) Denied() bool { return d.Kind == KindDeny }

func (d Decision) InFlight() bool { return d.Kind == KindLoading }
