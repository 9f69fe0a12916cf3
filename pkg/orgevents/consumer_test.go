package orgevents

import (
	"context"
	"sync"
	"testing"
	"time"
)

type scriptedConsumer struct {
	mu     sync.Mutex
	values [][]byte
	cancel context.CancelFunc
}

func (c *scriptedConsumer) ReadMessage(ctx context.Context) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.values) == 0 {
		c.cancel()
		return Message{}, context.Canceled
	}
	v := c.values[0]
	c.values = c.values[1:]
	return Message{Value: v}, nil
}

func (c *scriptedConsumer) Close() error { return nil }

type recordingInvalidator struct {
	mu     sync.Mutex
	orgIDs []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, orgID string) {
	r.mu.Lock()
	r.orgIDs = append(r.orgIDs, orgID)
	r.mu.Unlock()
}

func TestRunInvalidatesPerEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := &scriptedConsumer{
		cancel: cancel,
		values: [][]byte{
			[]byte(`{"org_id":"org_1","status":"approved"}`),
			[]byte(`not json at all`),
			[]byte(`{"status":"approved"}`),
			[]byte(`{"org_id":"  ","status":"rejected"}`),
			[]byte(`{"org_id":"org_2","status":"rejected"}`),
		},
	}
	inv := &recordingInvalidator{}

	done := make(chan struct{})
	go func() {
		Run(ctx, consumer, inv)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if len(inv.orgIDs) != 2 || inv.orgIDs[0] != "org_1" || inv.orgIDs[1] != "org_2" {
		t.Fatalf("invalidations = %v", inv.orgIDs)
	}
}

func TestKafkaConfigValidation(t *testing.T) {
	if _, err := NewKafkaConsumer(KafkaConfig{Topic: "t", GroupID: "g"}); err == nil {
		t.Fatal("missing brokers must be rejected")
	}
	if _, err := NewKafkaConsumer(KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"}); err == nil {
		t.Fatal("missing topic must be rejected")
	}
	if _, err := NewKafkaConsumer(KafkaConfig{Brokers: []string{" "}, Topic: "t", GroupID: "g"}); err == nil {
		t.Fatal("blank broker entries must be rejected")
	}
	c, err := NewKafkaConsumer(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "org.verification.changed", GroupID: "mandi-gateway"})
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
