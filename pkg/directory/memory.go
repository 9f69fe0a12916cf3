package directory

import (
	"context"
	"sync"

	"mandi/pkg/roles"
)

// Memory is an in-process directory used by tests and local development.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	orgs     map[string]string
}

func NewMemory() *Memory {
	return &Memory{accounts: map[string]Account{}, orgs: map[string]string{}}
}

func (m *Memory) PutAccount(a Account) {
	m.mu.Lock()
	m.accounts[a.UID] = a
	m.mu.Unlock()
}

func (m *Memory) PutOrg(orgID, status string) {
	m.mu.Lock()
	m.orgs[orgID] = status
	m.mu.Unlock()
}

func (m *Memory) Account(ctx context.Context, uid string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[uid]
	if !ok {
		return Account{UID: uid, Role: roles.Unassigned}, nil
	}
	return a, nil
}

func (m *Memory) VerificationStatus(ctx context.Context, orgID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.orgs[orgID]
	if !ok {
		return "", ErrNotFound
	}
	return status, nil
}
