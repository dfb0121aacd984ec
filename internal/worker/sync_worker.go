// Package worker consumes budget events and mirrors them to Google Sheets.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"neuralbudget/internal/amqp"
	"neuralbudget/internal/ports"
	"neuralbudget/internal/sheets/google"
)

// Mirror is the outbound sheet the worker keeps in sync.
type Mirror interface {
	UpsertBudget(ctx context.Context, row google.Row) error
	DeleteBudget(ctx context.Context, id int64) error
}

type SyncWorker struct {
	mirror Mirror
	store  ports.BudgetReader
}

// NewSyncWorker creates a worker. store may be nil, in which case Resync is
// a no-op.
func NewSyncWorker(mirror Mirror, store ports.BudgetReader) *SyncWorker {
	return &SyncWorker{mirror: mirror, store: store}
}

// HandleEvent applies one budget event to the sheet.
func (w *SyncWorker) HandleEvent(ctx context.Context, evt *amqp.BudgetEvent) error {
	slog.InfoContext(ctx, "Processing budget event",
		"type", evt.Type,
		"id", evt.ID,
		"user_id", evt.UserID,
		"version", evt.Version)

	switch evt.Type {
	case amqp.EventBudgetSet:
		row := google.Row{
			ID:        evt.ID,
			UserID:    evt.UserID,
			Category:  evt.Category,
			Amount:    evt.Amount,
			Period:    evt.Period,
			UpdatedAt: evt.Timestamp,
		}
		if err := w.mirror.UpsertBudget(ctx, row); err != nil {
			return fmt.Errorf("mirror budget %d: %w", evt.ID, err)
		}
	case amqp.EventBudgetDeleted:
		if err := w.mirror.DeleteBudget(ctx, evt.ID); err != nil {
			return fmt.Errorf("remove mirrored budget %d: %w", evt.ID, err)
		}
	default:
		slog.WarnContext(ctx, "Ignoring unknown budget event", "type", evt.Type)
	}
	return nil
}

// Resync rewrites every budget of userID to the sheet. It recovers from
// events lost while the worker was down.
func (w *SyncWorker) Resync(ctx context.Context, userID string) error {
	if w.store == nil {
		return nil
	}
	budgets, err := w.store.ListBudgets(ctx, userID)
	if err != nil {
		return fmt.Errorf("list budgets for resync: %w", err)
	}

	failed := 0
	for _, b := range budgets {
		evt := amqp.NewBudgetSetEvent(b)
		evt.Timestamp = b.CreatedAt
		if err := w.HandleEvent(ctx, evt); err != nil {
			slog.ErrorContext(ctx, "Failed to resync budget", "id", b.ID, "error", err)
			failed++
		}
	}

	slog.InfoContext(ctx, "Resync finished",
		"user_id", userID,
		"total", len(budgets),
		"failed", failed)
	if failed > 0 {
		return fmt.Errorf("resync: %s of %d budgets failed", strconv.Itoa(failed), len(budgets))
	}
	return nil
}
