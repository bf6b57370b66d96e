package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/ports"
)

// mockStore is a minimal SessionStore used to exercise the contract suite itself.
type mockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Session
}

func (m *mockStore) Save(_ context.Context, sess *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sess.ID] = sess.Clone()
	return nil
}

func (m *mockStore) Load(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *mockStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, &mockStore{data: make(map[string]*domain.Session)})
}
