package http_test

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
)

// repoStub keeps notifications in memory. When err is set every call fails
// with it; updateErr only affects Update.
type repoStub struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]domain.Notification
	seq         int64
	err         error
	updateErr   error
	updateCalls int
}

func newRepoStub() *repoStub {
	return &repoStub{rows: map[uuid.UUID]domain.Notification{}}
}

func (r *repoStub) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *repoStub) Insert(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.seq++
	n.Seq = r.seq
	r.rows[n.ID] = *n.Clone()
	return nil
}

func (r *repoStub) InsertBatch(ctx context.Context, ns []*domain.Notification) error {
	for _, n := range ns {
		if err := r.Insert(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoStub) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	n, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	return n.Clone(), nil
}

func (r *repoStub) Update(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.err != nil {
		return r.err
	}
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.rows[n.ID]; !ok {
		return domain.ErrNotificationNotFound
	}
	r.rows[n.ID] = *n.Clone()
	return nil
}

func (r *repoStub) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotificationNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *repoStub) Find(_ context.Context, f domain.Filter) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := r.match(f)
	if f.Offset >= len(out) {
		return []domain.Notification{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *repoStub) Count(_ context.Context, f domain.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return len(r.match(f)), nil
}

func (r *repoStub) CountByCategory(_ context.Context, recipientID uuid.UUID) (map[domain.Category]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := map[domain.Category]int{}
	for _, n := range r.match(domain.Filter{RecipientID: &recipientID}) {
		out[n.Category]++
	}
	return out, nil
}

func (r *repoStub) match(f domain.Filter) []domain.Notification {
	out := []domain.Notification{}
	for _, n := range r.rows {
		switch {
		case f.RecipientID != nil && n.RecipientID != *f.RecipientID,
			len(f.Categories) > 0 && !slices.Contains(f.Categories, n.Category),
			f.Priority != nil && n.Priority != *f.Priority,
			f.UnreadOnly && n.IsRead,
			f.CreatedAfter != nil && n.CreatedAt.Before(*f.CreatedAfter),
			f.CreatedBefore != nil && !n.CreatedAt.Before(*f.CreatedBefore),
			f.DeletedBefore != nil && (n.DeletedAt == nil || !n.DeletedAt.Before(*f.DeletedBefore)),
			f.CorrelationID != nil && (n.CorrelationID == nil || *n.CorrelationID != *f.CorrelationID),
			f.Deleted == domain.ExcludeDeleted && n.IsDeleted,
			f.Deleted == domain.OnlyDeleted && !n.IsDeleted:
			continue
		}
		out = append(out, *n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type usersStub struct {
	active []uuid.UUID
}

func (u usersStub) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return slices.Contains(u.active, id), nil
}

func (u usersStub) ListActiveUserIDs(context.Context) ([]uuid.UUID, error) {
	return u.active, nil
}
