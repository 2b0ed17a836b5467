package roadmap

import (
	"context"
	"sync"
)

// MemoryMappingStore is an in-process MappingStore, used for dry runs and
// tests. Mappings are scoped per community like the persistent store.
type MemoryMappingStore struct {
	mu      sync.Mutex
	threads map[string]string
	roles   map[string][]string

	// FailWrites, when set, is returned from every SetSyncedThreadID call.
	FailWrites error
}

// NewMemoryMappingStore creates an empty in-memory store.
func NewMemoryMappingStore() *MemoryMappingStore {
	return &MemoryMappingStore{
		threads: make(map[string]string),
		roles:   make(map[string][]string),
	}
}

func mappingKey(communityID, cardID string) string {
	return communityID + "\x00" + cardID
}

// SyncedThreadID implements MappingStore.
func (m *MemoryMappingStore) SyncedThreadID(_ context.Context, communityID, cardID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threads[mappingKey(communityID, cardID)], nil
}

// SetSyncedThreadID implements MappingStore.
func (m *MemoryMappingStore) SetSyncedThreadID(_ context.Context, communityID, cardID, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.threads[mappingKey(communityID, cardID)] = threadID
	return nil
}

// AuthorizedRoles implements MappingStore.
func (m *MemoryMappingStore) AuthorizedRoles(_ context.Context, communityID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.roles[communityID]...), nil
}

// SetAuthorizedRoles replaces a community's role restriction.
func (m *MemoryMappingStore) SetAuthorizedRoles(communityID string, roles []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[communityID] = append([]string(nil), roles...)
}

// SyncedCardIDs lists every mapped card in a community.
func (m *MemoryMappingStore) SyncedCardIDs(_ context.Context, communityID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	prefix := communityID + "\x00"
	for k := range m.threads {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			ids = append(ids, k[len(prefix):])
		}
	}
	return ids, nil
}

var _ MappingStore = (*MemoryMappingStore)(nil)
