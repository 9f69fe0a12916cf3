package session

import (
	"sync"
	"time"
)

// Intent is a captured navigation target: where the caller was trying to go
// when a premium gate turned them away.
type Intent struct {
	FeatureID string `json:"feature_id"`
	Route     string `json:"route"`
}

// State holds one session's premium-gate bookkeeping: at most one pending
// intent (last writer wins) and the set of features provisionally unlocked by
// consent. Grants never expire mid-session; everything dies with the session.
type State struct {
	mu       sync.Mutex
	intent   *Intent
	allowed  map[string]bool
	lastSeen time.Time
}

func newState(now time.Time) *State {
	return &State{allowed: map[string]bool{}, lastSeen: now}
}

// SetIntent records a pending intent, replacing any previous one.
func (s *State) SetIntent(featureID, route string) {
	s.mu.Lock()
	s.intent = &Intent{FeatureID: featureID, Route: route}
	s.mu.Unlock()
}

// PendingIntent returns the current intent without consuming it.
func (s *State) PendingIntent() (Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.intent == nil {
		return Intent{}, false
	}
	return *s.intent, true
}

// ConsumeIntent atomically reads and clears the pending intent. Consent and
// dismiss both funnel through the same lock, so a racing dismiss can never
// leave a consent holding an intent that was meant to be discarded.
func (s *State) ConsumeIntent() (Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.intent == nil {
		return Intent{}, false
	}
	intent := *s.intent
	s.intent = nil
	return intent, true
}

// ClearIntent drops the pending intent without granting anything.
func (s *State) ClearIntent() {
	s.mu.Lock()
	s.intent = nil
	s.mu.Unlock()
}

// AllowFeature adds an in-session exception for the feature.
func (s *State) AllowFeature(featureID string) {
	s.mu.Lock()
	s.allowed[featureID] = true
	s.mu.Unlock()
}

func (s *State) FeatureAllowed(featureID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowed[featureID]
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry owns session state per caller. It is an explicit, injectable
// object so tests construct isolated instances per case.
type Registry struct {
	mu    sync.Mutex
	items map[string]*State
	ttl   time.Duration
	now   func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Registry{items: map[string]*State{}, ttl: ttl, now: time.Now}
}

// Session returns the caller's state, creating it on first use.
func (r *Registry) Session(uid string) *State {
	now := r.now()
	r.mu.Lock()
	s, ok := r.items[uid]
	if !ok {
		s = newState(now)
		r.items[uid] = s
	}
	r.mu.Unlock()
	s.touch(now)
	return s
}

// End discards a session and with it every pending intent and exception.
func (r *Registry) End(uid string) {
	r.mu.Lock()
	delete(r.items, uid)
	r.mu.Unlock()
}

// Sweep drops sessions idle past the TTL.
func (r *Registry) Sweep() {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for uid, s := range r.items {
		if now.Sub(s.seen()) > r.ttl {
			delete(r.items, uid)
		}
	}
}
