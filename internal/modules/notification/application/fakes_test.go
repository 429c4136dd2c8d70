package application

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"github.com/stretchr/testify/require"
)

var errLocked = &domain.RetryableStoreError{Err: errors.New("database is locked")}

// memRepo is an in-memory NotificationRepository. The *Err hooks receive
// the 1-based call number and can inject failures.
type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Notification
	seq  int64

	updateCalls      int
	updateCommits    int
	insertBatchCalls int
	batchSizes       []int

	updateErr      func(call int) error
	insertBatchErr func(call int) error
	deleteErr      func(id uuid.UUID) error
	findErr        error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[uuid.UUID]domain.Notification{}}
}

func (r *memRepo) Insert(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(n)
}

func (r *memRepo) insertLocked(n *domain.Notification) error {
	if _, ok := r.rows[n.ID]; ok {
		return errors.New("duplicate key")
	}
	r.seq++
	n.Seq = r.seq
	r.rows[n.ID] = *n.Clone()
	return nil
}

func (r *memRepo) InsertBatch(_ context.Context, ns []*domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertBatchCalls++
	r.batchSizes = append(r.batchSizes, len(ns))
	if r.insertBatchErr != nil {
		if err := r.insertBatchErr(r.insertBatchCalls); err != nil {
			return err
		}
	}
	for _, n := range ns {
		if err := r.insertLocked(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	return n.Clone(), nil
}

func (r *memRepo) Update(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		if err := r.updateErr(r.updateCalls); err != nil {
			return err
		}
	}
	stored, ok := r.rows[n.ID]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	next := *n.Clone()
	next.Seq = stored.Seq
	next.RecipientID = stored.RecipientID
	next.CreatedAt = stored.CreatedAt
	r.rows[n.ID] = next
	r.updateCommits++
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		if err := r.deleteErr(id); err != nil {
			return err
		}
	}
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotificationNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) Find(_ context.Context, f domain.Filter) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := r.matchLocked(f)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.Notification{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memRepo) Count(_ context.Context, f domain.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return 0, r.findErr
	}
	return len(r.matchLocked(f)), nil
}

func (r *memRepo) CountByCategory(_ context.Context, recipientID uuid.UUID) (map[domain.Category]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := map[domain.Category]int{}
	for _, n := range r.matchLocked(domain.Filter{RecipientID: &recipientID}) {
		out[n.Category]++
	}
	return out, nil
}

func (r *memRepo) matchLocked(f domain.Filter) []domain.Notification {
	out := []domain.Notification{}
	for _, n := range r.rows {
		if matches(f, n) {
			out = append(out, *n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.OldestFirst {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Seq > b.Seq
	})
	return out
}

func matches(f domain.Filter, n domain.Notification) bool {
	switch {
	case f.RecipientID != nil && n.RecipientID != *f.RecipientID:
		return false
	case len(f.Categories) > 0 && !slices.Contains(f.Categories, n.Category):
		return false
	case f.Priority != nil && n.Priority != *f.Priority:
		return false
	case f.UnreadOnly && n.IsRead:
		return false
	case f.CreatedAfter != nil && n.CreatedAt.Before(*f.CreatedAfter):
		return false
	case f.CreatedBefore != nil && !n.CreatedAt.Before(*f.CreatedBefore):
		return false
	case f.DeletedBefore != nil && (n.DeletedAt == nil || !n.DeletedAt.Before(*f.DeletedBefore)):
		return false
	case f.CorrelationID != nil && (n.CorrelationID == nil || *n.CorrelationID != *f.CorrelationID):
		return false
	case f.Deleted == domain.ExcludeDeleted && n.IsDeleted:
		return false
	case f.Deleted == domain.OnlyDeleted && !n.IsDeleted:
		return false
	}
	return true
}

func (r *memRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memRepo) get(t *testing.T, id uuid.UUID) domain.Notification {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	require.True(t, ok, "notification %s not stored", id)
	return n
}

// seed stores n as-is, bypassing the store.
func (r *memRepo) seed(t *testing.T, n *domain.Notification) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NoError(t, r.insertLocked(n))
}

func (r *memRepo) requireInvariants(t *testing.T) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, n := range r.rows {
		require.Equal(t, n.IsRead, n.ReadAt != nil, "read invariant broken for %s", id)
		require.Equal(t, n.IsDeleted, n.DeletedAt != nil, "deleted invariant broken for %s", id)
	}
}

type fakeSleeper struct {
	delays []time.Duration
	err    error
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeUsers struct {
	known   map[uuid.UUID]bool
	active  []uuid.UUID
	err     error
	listErr error
}

func (u fakeUsers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	if u.err != nil {
		return false, u.err
	}
	return u.known[id], nil
}

func (u fakeUsers) ListActiveUserIDs(context.Context) ([]uuid.UUID, error) {
	return u.active, u.listErr
}

type fixture struct {
	repo    *memRepo
	clock   *fakeClock
	sleeper *fakeSleeper
	store   *NotificationStore
}

func newFixture() *fixture {
	f := &fixture{repo: newMemRepo(), clock: newFakeClock(), sleeper: &fakeSleeper{}}
	f.store = NewNotificationStore(f.repo, StoreOptions{
		Sleeper: f.sleeper,
		Backoff: LinearBackoff{Base: 50 * time.Millisecond},
		Now:     f.clock.Now,
	})
	return f
}

func (f *fixture) notification(recipient uuid.UUID, createdAgo time.Duration) *domain.Notification {
	return &domain.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		Title:       "Order Created",
		Message:     "Your order #42 was placed",
		Category:    domain.CategoryOrderCreated,
		Priority:    domain.PriorityNormal,
		CreatedAt:   f.clock.Now().Add(-createdAgo),
	}
}
