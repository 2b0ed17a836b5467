package command

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campfirehq/roadsync/internal/card"
	"github.com/campfirehq/roadsync/internal/roadmap"
)

// DefaultMetadataTTL bounds how stale autocomplete metadata may get.
const DefaultMetadataTTL = 30 * time.Second

type cached[T any] struct {
	value     T
	fetchedAt time.Time
}

// MetadataCache serves provider metadata (columns, labels, issue types)
// for interactive use, where a round trip per keystroke is too slow.
// Entries expire after a short TTL and are refetched lazily. The zero
// value is not usable, construct it with NewMetadataCache.
type MetadataCache struct {
	provider roadmap.Provider
	ttl      time.Duration
	now      func() time.Time

	mu         sync.Mutex
	columns    cached[[]card.Column]
	labels     cached[[]string]
	issueTypes cached[[]string]
}

// NewMetadataCache creates a cache in front of a provider. A non-positive
// ttl selects DefaultMetadataTTL.
func NewMetadataCache(p roadmap.Provider, ttl time.Duration) *MetadataCache {
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	return &MetadataCache{
		provider: p,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Columns returns the provider's column set, cached.
func (m *MetadataCache) Columns(ctx context.Context) ([]card.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fresh(m.columns.fetchedAt) {
		return m.columns.value, nil
	}
	cols, err := m.provider.GetColumns(ctx)
	if err != nil {
		return nil, err
	}
	m.columns = cached[[]card.Column]{value: cols, fetchedAt: m.now()}
	return cols, nil
}

// Labels returns the provider's label vocabulary, cached.
func (m *MetadataCache) Labels(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fresh(m.labels.fetchedAt) {
		return m.labels.value, nil
	}
	labels, err := m.provider.GetLabels(ctx)
	if err != nil {
		return nil, err
	}
	m.labels = cached[[]string]{value: labels, fetchedAt: m.now()}
	return labels, nil
}

// IssueTypes returns the provider's issue type names, cached.
func (m *MetadataCache) IssueTypes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fresh(m.issueTypes.fetchedAt) {
		return m.issueTypes.value, nil
	}
	types, err := m.provider.GetIssueTypes(ctx)
	if err != nil {
		return nil, err
	}
	m.issueTypes = cached[[]string]{value: types, fetchedAt: m.now()}
	return types, nil
}

// Refresh fetches all three metadata sets concurrently, warming the cache
// at startup. The first error wins; the cache keeps whatever succeeded.
func (m *MetadataCache) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := m.Columns(ctx); return err })
	g.Go(func() error { _, err := m.Labels(ctx); return err })
	g.Go(func() error { _, err := m.IssueTypes(ctx); return err })
	return g.Wait()
}

func (m *MetadataCache) fresh(fetchedAt time.Time) bool {
	return !fetchedAt.IsZero() && m.now().Sub(fetchedAt) < m.ttl
}
