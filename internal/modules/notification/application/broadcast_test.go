package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maintenanceTemplate = domain.Template{
	Title:    "Scheduled maintenance",
	Message:  "Ordering is paused tonight from 02:00 to 03:00.",
	Category: domain.CategorySystemMaintenance,
	Priority: domain.PriorityHigh,
}

func TestBroadcastEngine_SkipsFailingRecipient(t *testing.T) {
	f := newFixture()
	engine := NewBroadcastEngine(f.store, nil, nil)

	recipients := StaticRecipients{uuid.New(), uuid.New(), uuid.Nil, uuid.New(), uuid.New()}
	res, err := engine.Broadcast(context.Background(), maintenanceTemplate, recipients)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Attempted)
	assert.Equal(t, 4, res.Succeeded)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.SkippedRecipients, 1)
	assert.Equal(t, uuid.Nil, res.SkippedRecipients[0].RecipientID)
	assert.Contains(t, res.SkippedRecipients[0].Reason, "recipient is required")
	assert.Equal(t, 4, f.repo.size())
	f.repo.requireInvariants(t)
}

func TestBroadcastEngine_CustomBuilder(t *testing.T) {
	f := newFixture()
	blocked := uuid.New()
	build := func(r uuid.UUID, tpl domain.Template, now time.Time) (*domain.Notification, error) {
		if r == blocked {
			return nil, errors.New("recipient opted out")
		}
		return domain.NewNotification(r, tpl, now)
	}
	engine := NewBroadcastEngine(f.store, build, nil)

	res, err := engine.Broadcast(context.Background(), maintenanceTemplate, StaticRecipients{uuid.New(), blocked})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []SkippedRecipient{{RecipientID: blocked, Reason: "recipient opted out"}}, res.SkippedRecipients)
}

func TestBroadcastEngine_InvalidTemplateSkipsEveryone(t *testing.T) {
	f := newFixture()
	engine := NewBroadcastEngine(f.store, nil, nil)
	tpl := maintenanceTemplate
	tpl.Title = ""

	res, err := engine.Broadcast(context.Background(), tpl, StaticRecipients{uuid.New(), uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, f.repo.insertBatchCalls)
}

func TestBroadcastEngine_ChunkFailureIsReported(t *testing.T) {
	f := newFixture()
	f.repo.insertBatchErr = func(call int) error {
		if call == 1 {
			return errors.New("foreign key violation")
		}
		return nil
	}
	engine := NewBroadcastEngine(f.store, nil, nil)

	recipients := make(StaticRecipients, 60)
	for i := range recipients {
		recipients[i] = uuid.New()
	}
	res, err := engine.Broadcast(context.Background(), maintenanceTemplate, recipients)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Attempted)
	assert.Equal(t, 10, res.Succeeded)
	assert.Equal(t, 50, res.Skipped)
	assert.Equal(t, recipients[0], res.SkippedRecipients[0].RecipientID)
	assert.Equal(t, 10, f.repo.size())
}

func TestBroadcastEngine_ActiveUsers(t *testing.T) {
	f := newFixture()
	engine := NewBroadcastEngine(f.store, nil, nil)
	active := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	res, err := engine.Broadcast(context.Background(), maintenanceTemplate, ActiveUsers(fakeUsers{active: active}))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)
	assert.Empty(t, res.SkippedRecipients)

	for _, id := range active {
		count, err := NewQueryIndex(f.store).HighPriorityUnreadCount(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	}
}

func TestBroadcastEngine_SourceFailure(t *testing.T) {
	f := newFixture()
	engine := NewBroadcastEngine(f.store, nil, nil)

	res, err := engine.Broadcast(context.Background(), maintenanceTemplate, ActiveUsers(fakeUsers{listErr: errors.New("users down")}))
	assert.Nil(t, res)
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "resolve broadcast recipients", perr.Op)
}
