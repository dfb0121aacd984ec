package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"neuralbudget/internal/amqp"
	"neuralbudget/internal/cache"
	"neuralbudget/internal/core"
	"neuralbudget/internal/ports"
)

// Publisher announces budget changes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt *amqp.BudgetEvent) error
}

// BudgetService orchestrates budget operations across the store, the
// analysis cache and the event bus.
type BudgetService struct {
	store     ports.Store
	publisher Publisher
	analyses  *cache.LRU[string, core.Analysis]

	// generations counts writes per user. An analysis is cached only if no
	// write happened while it was being built.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewBudgetService wires the service. publisher and analyses may be nil.
func NewBudgetService(store ports.Store, publisher Publisher, analyses *cache.LRU[string, core.Analysis]) *BudgetService {
	return &BudgetService{
		store:       store,
		publisher:   publisher,
		analyses:    analyses,
		generations: make(map[string]uint64),
	}
}

// SetBudget creates or replaces the user's budget for a category.
func (s *BudgetService) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.SetBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.invalidate(saved.UserID)

	// the budget is saved; a failed publish only delays the mirror
	if err := s.publish(ctx, amqp.NewBudgetSetEvent(saved)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event", "id", saved.ID, "error", err)
	}
	return saved, nil
}

// ListBudgets returns the latest budget per category.
func (s *BudgetService) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return core.LatestBudgets(budgets), nil
}

// DeleteBudget removes one of the user's budgets. It returns
// ports.ErrBudgetNotFound when the id does not belong to the user.
func (s *BudgetService) DeleteBudget(ctx context.Context, userID string, id int64) error {
	b, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ports.ErrBudgetNotFound) {
			return err
		}
		return fmt.Errorf("load budget: %w", err)
	}
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		if errors.Is(err, ports.ErrBudgetNotFound) {
			return err
		}
		return fmt.Errorf("delete budget: %w", err)
	}
	s.invalidate(userID)

	evt := amqp.NewBudgetDeletedEvent(userID, id)
	evt.Category = b.Category
	if err := s.publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event", "id", id, "error", err)
	}
	return nil
}

// AddExpense records a spend against one of the user's categories. The
// category is registered for the user if it is new.
func (s *BudgetService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Category = core.NormalizeCategory(e.Category)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.AddCategory(ctx, e.UserID, e.Category); err != nil {
		return core.Expense{}, fmt.Errorf("register category: %w", err)
	}
	id, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id
	s.invalidate(e.UserID)
	return e, nil
}

// Analysis builds the budgets snapshot and totals for a user.
func (s *BudgetService) Analysis(ctx context.Context, userID string) (core.Analysis, error) {
	if s.analyses != nil {
		if a, ok := s.analyses.Get(userID); ok {
			return a, nil
		}
	}
	gen := s.generation(userID)

	var (
		budgets  []core.Budget
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpenses(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Analysis{}, fmt.Errorf("load analysis data: %w", err)
	}

	a := core.BuildAnalysis(budgets, expenses)
	s.remember(userID, gen, a)
	return a, nil
}

// Categories returns the selector options for the user's categories.
func (s *BudgetService) Categories(ctx context.Context, userID string) ([]core.DropdownOption, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return core.Options(cats), nil
}

// Ping checks the store when it supports health checks.
func (s *BudgetService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *BudgetService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// remember caches a for userID unless a write bumped the generation since
// gen was read.
func (s *BudgetService) remember(userID string, gen uint64, a core.Analysis) {
	if s.analyses == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] == gen {
		s.analyses.Set(userID, a)
	}
}

func (s *BudgetService) invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[userID]++
	if s.analyses != nil {
		s.analyses.Delete(userID)
	}
}

func (s *BudgetService) publish(ctx context.Context, evt *amqp.BudgetEvent) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event", "type", evt.Type)
		return nil
	}
	return s.publisher.Publish(ctx, evt)
}
