package gate

import (
	"context"

	"mandi/pkg/roles"
	"mandi/pkg/session"
)

// Chain composes the gates in fixed order: role, then approval, then any
// premium gates for the region's features. The first non-permit result
// short-circuits; a region renders only after clearing every gate.
type Chain struct {
	Approval *ApprovalGate
	Premium  *PremiumGate
}

func (c *Chain) EvaluateRegion(ctx context.Context, sess *session.State, res Resolution, requestedPath string, region roles.ProtectedRegion) Decision {
	if d := EvaluateRole(res, requestedPath, region); !d.Permitted() {
		return d
	}
	if d := c.Approval.Evaluate(ctx, res, requestedPath); !d.Permitted() {
		return d
	}
	for _, featureID := range region.PremiumFeatures {
		if d := c.Premium.Evaluate(sess, featureID, requestedPath); !d.Permitted() {
			return d
		}
	}
	return Permit()
}
