// Package orgevents consumes organization verification-status change events
// and invalidates the approval cache, so status changes converge faster than
// the cache TTL without shortening it.
package orgevents

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
)

type Message struct {
	Value []byte
}

type Consumer interface {
	ReadMessage(ctx context.Context) (Message, error)
	Close() error
}

// ChangeEvent is the wire shape of org.verification.changed.
type ChangeEvent struct {
	OrgID  string `json:"org_id"`
	Status string `json:"status"`
}

type Invalidator interface {
	Invalidate(ctx context.Context, orgID string)
}

// Run pumps events into the invalidator until the context ends. Malformed
// events are logged and skipped.
func Run(ctx context.Context, consumer Consumer, inv Invalidator) {
	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Printf("orgevents: read failed: %v", err)
			continue
		}
		var evt ChangeEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Printf("orgevents: malformed event: %v", err)
			continue
		}
		if strings.TrimSpace(evt.OrgID) == "" {
			continue
		}
		inv.Invalidate(ctx, evt.OrgID)
	}
}
