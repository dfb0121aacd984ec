package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralbudget/internal/amqp"
	"neuralbudget/internal/core"
	"neuralbudget/internal/memory"
	"neuralbudget/internal/sheets/google"
)

type fakeMirror struct {
	rows    map[int64]google.Row
	deleted []int64
	err     error
}

func newFakeMirror() *fakeMirror { return &fakeMirror{rows: map[int64]google.Row{}} }

func (f *fakeMirror) UpsertBudget(_ context.Context, r google.Row) error {
	if f.err != nil {
		return f.err
	}
	f.rows[r.ID] = r
	return nil
}

func (f *fakeMirror) DeleteBudget(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	delete(f.rows, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	w := NewSyncWorker(mirror, nil)

	set := amqp.NewBudgetSetEvent(core.Budget{ID: 5, UserID: "u1", Category: "travel", Amount: decimal.NewFromInt(200), Period: core.Monthly})
	require.NoError(t, w.HandleEvent(ctx, set))
	require.Contains(t, mirror.rows, int64(5))
	assert.Equal(t, "200.00", mirror.rows[5].Amount)
	assert.Equal(t, "travel", mirror.rows[5].Category)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewBudgetDeletedEvent("u1", 5)))
	assert.NotContains(t, mirror.rows, int64(5))
	assert.Equal(t, []int64{5}, mirror.deleted)
}

func TestHandleEventPropagatesMirrorErrors(t *testing.T) {
	mirror := newFakeMirror()
	mirror.err = errors.New("quota exceeded")
	w := NewSyncWorker(mirror, nil)

	err := w.HandleEvent(context.Background(), amqp.NewBudgetDeletedEvent("u1", 1))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	_, err := store.SetBudget(ctx, core.Budget{UserID: "u1", Category: "rent", Amount: decimal.NewFromInt(900)})
	require.NoError(t, err)
	_, err = store.SetBudget(ctx, core.Budget{UserID: "u1", Category: "food", Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)

	mirror := newFakeMirror()
	w := NewSyncWorker(mirror, store)
	require.NoError(t, w.Resync(ctx, "u1"))
	assert.Len(t, mirror.rows, 2)

	mirror.err = errors.New("down")
	assert.Error(t, w.Resync(ctx, "u1"))

	assert.NoError(t, NewSyncWorker(mirror, nil).Resync(ctx, "u1"))
}
