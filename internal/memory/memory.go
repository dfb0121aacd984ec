package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"neuralbudget/internal/core"
	"neuralbudget/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store keeps budgets, expenses and categories in process memory. Default
// categories are visible to every user; budgets, expenses and added
// categories belong to one user.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	cats     []string
	userCats map[string][]string
	budgets  []core.Budget
	expenses []core.Expense
	now      func() time.Time
}

func New(cats []string) *Store {
	return &Store{
		cats:     dedupe(cats),
		userCats: make(map[string][]string),
		now:      time.Now,
	}
}

// NewFromFiles seeds default categories from seed_categories.txt and the
// expenses of userID from seed_expenses.txt ("category,amount" per line)
// under base.
func NewFromFiles(base, userID string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"groceries", "transportation", "utilities", "housing", "other"}
	}
	s := New(cats)
	for _, line := range readLines(filepath.Join(base, "seed_expenses.txt")) {
		cat, amt, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		d, err := core.ParseAmount(amt)
		if err != nil {
			continue
		}
		s.AddExpense(context.Background(), core.Expense{UserID: userID, Category: strings.TrimSpace(cat), Amount: d})
	}
	return s
}

// AddExpense implements ports.ExpenseWriter.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	s.expenses = append(s.expenses, e)
	return e.ID, nil
}

func (s *Store) SetBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b = b.Normalize()
	b.CreatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.budgets {
		if existing.UserID == b.UserID && existing.Category == b.Category {
			b.ID = existing.ID
			s.budgets[i] = b
			return b, nil
		}
	}
	s.nextID++
	b.ID = s.nextID
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, userID string, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.UserID == userID && b.ID == id {
			return b, nil
		}
	}
	return core.Budget{}, ports.ErrBudgetNotFound
}

func (s *Store) DeleteBudget(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if b.UserID == userID && b.ID == id {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return nil
		}
	}
	return ports.ErrBudgetNotFound
}

// ListExpenses implements ports.ExpenseLister.
func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListCategories returns the defaults followed by the user's own
// categories.
func (s *Store) ListCategories(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.cats...)
	return append(out, s.userCats[userID]...), nil
}

// AddCategory implements ports.CategoryWriter.
func (s *Store) AddCategory(_ context.Context, userID, name string) error {
	name = core.NormalizeCategory(name)
	if name == "" {
		return core.ErrEmptyCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	known := func(c string) bool { return core.NormalizeCategory(c) == name }
	if slices.ContainsFunc(s.cats, known) || slices.ContainsFunc(s.userCats[userID], known) {
		return nil
	}
	s.userCats[userID] = append(s.userCats[userID], name)
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
