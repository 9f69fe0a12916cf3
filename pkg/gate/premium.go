package gate

import (
	"mandi/pkg/roles"
	"mandi/pkg/session"
)

// FeatureRegistry maps feature ids to their locked flag. Static per
// deployment.
type FeatureRegistry map[string]bool

func (r FeatureRegistry) Locked(featureID string) bool {
	return r[featureID]
}

// DefaultFeatures is the deployment's premium registry.
func DefaultFeatures() FeatureRegistry {
	return FeatureRegistry{
		"market-insights":   true,
		"price-forecast":    true,
		"bulk-sourcing":     true,
		"logistics-planner": true,
		"advisory-feed":     false,
	}
}

// PremiumGate gates locked features behind an explicit consent flow. A denial
// captures the caller's navigation intent and redirects to the neutral route;
// only a consent action can convert a locked feature into a permit.
type PremiumGate struct {
	Registry FeatureRegistry
	// PreviewEnabled is the deployment-wide switch. When false, consent is
	// acknowledged but no exception is granted and no navigation resumes:
	// the feature stays in coming-soon mode.
	PreviewEnabled bool
}

// Evaluate permits unlocked features and features already excepted for the
// session. A locked feature records the pending intent (replacing any
// previous one) and denies with a consent prompt. Re-evaluating a locked
// feature without intervening consent yields the same denial and still one
// intent.
func (g *PremiumGate) Evaluate(sess *session.State, featureID, currentPath string) Decision {
	if !g.Registry.Locked(featureID) || sess.FeatureAllowed(featureID) {
		return Permit()
	}
	sess.SetIntent(featureID, currentPath)
	return Deny(ReasonFeatureLocked, roles.NeutralRoute, &DenyState{
		RequestedPath: currentPath,
		FallbackRoute: roles.NeutralRoute,
		FeatureID:     featureID,
		PromptConsent: true,
	})
}

// Continue is the consent action. It atomically consumes the pending intent;
// with preview enabled it grants the session exception and returns the route
// to resume. With preview disabled the consent is acknowledged and nothing is
// granted.
func (g *PremiumGate) Continue(sess *session.State) (route string, resumed bool) {
	intent, ok := sess.ConsumeIntent()
	if !ok {
		return "", false
	}
	if !g.PreviewEnabled {
		return "", false
	}
	sess.AllowFeature(intent.FeatureID)
	if intent.Route == "" {
		return "", false
	}
	return intent.Route, true
}

// Dismiss clears the pending intent without granting anything.
func (g *PremiumGate) Dismiss(sess *session.State) {
	sess.ClearIntent()
}
