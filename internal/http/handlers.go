package http

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	"neuralbudget/internal/budgetpage"
	"neuralbudget/internal/core"
	"neuralbudget/internal/log"
)

type setBudgetPage struct {
	Analysis core.Analysis
	Options  []core.DropdownOption
	Flash    string
}

// budgetJSON is the wire shape of a stored budget.
type budgetJSON struct {
	ID        int64     `json:"id"`
	Category  string    `json:"category"`
	Budget    string    `json:"budget"`
	Period    string    `json:"period"`
	CreatedAt time.Time `json:"created_at"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.api.Ping(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
		return
	}
	hits, suspicious := s.securityCounts()
	NewResponse().JSON(map[string]any{
		"status":              "ready",
		"rate_limit_hits":     hits,
		"suspicious_requests": suspicious,
		"open_page_sessions":  s.sessions.Len(),
	}).Write(w)
}

func (s *Server) handleSetBudgetPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.userID(r)
	logger := log.FromContext(ctx)

	analysis, err := s.api.Analysis(ctx, user)
	if err != nil {
		logger.LogError(ctx, "Failed to build budget analysis", err, log.OpAnalyze, log.NewFields().WithUser(user))
		HTMLErrorResponse(http.StatusInternalServerError, "Could not load budgets").Write(w)
		return
	}
	options, err := s.api.Categories(ctx, user)
	if err != nil {
		logger.LogError(ctx, "Failed to list categories", err, log.OpList, log.NewFields().WithUser(user))
		HTMLErrorResponse(http.StatusInternalServerError, "Could not load categories").Write(w)
		return
	}

	data := setBudgetPage{Analysis: analysis, Options: options}
	if saved := r.URL.Query().Get("saved"); saved != "" {
		data.Flash = "Budget for " + saved + " set successfully!"
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "set_budget.html", data); err != nil {
		logger.LogError(ctx, "Failed to render budgets page", err, log.OpRender, log.NewFields())
		HTMLErrorResponse(http.StatusInternalServerError, "Could not render page").Write(w)
		return
	}
	NewResponse().BodyHTML(buf.Bytes()).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.userID(r)

	b, err := parseBudgetForm(NewRequestBodyParser(r), user)
	if err == nil {
		b, err = s.api.SetBudget(ctx, b)
	}
	if err != nil {
		log.FromContext(ctx).LogError(ctx, "Failed to set budget", err, log.OpSet, log.NewFields().WithUser(user))
		HTMLErrorResponse(statusFor(err), errorMessage(err)).Write(w)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Budget set",
		log.NewFields().WithUser(user).WithBudget(b.ID, b.Category, b.Amount.String(), string(b.Period)).ToSlice()...)
	http.Redirect(w, r, "/budgets/set-budget/?saved="+url.QueryEscape(b.Category), http.StatusSeeOther)
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	budgets, err := s.api.ListBudgets(ctx, s.userID(r))
	if err != nil {
		log.FromContext(ctx).LogError(ctx, "Failed to list budgets", err, log.OpList, log.NewFields())
		ErrorResponse(statusFor(err), errorMessage(err)).Write(w)
		return
	}

	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, budgetJSON{
			ID:        b.ID,
			Category:  b.Category,
			Budget:    b.Amount.StringFixed(2),
			Period:    string(b.Period),
			CreatedAt: b.CreatedAt,
		})
	}
	NewResponse().JSON(map[string]any{"budgets": out}).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		MethodNotAllowedError(http.MethodDelete).Write(w)
		return
	}
	ctx := r.Context()
	user := s.userID(r)
	logger := log.FromContext(ctx)

	parser := NewRequestBodyParser(r)
	id, err := parseBudgetID(parser)
	if err == nil {
		err = s.api.DeleteBudget(ctx, user, id)
	}
	if err != nil {
		logger.LogError(ctx, "Failed to delete budget", err, log.OpDelete, log.NewFields().WithUser(user))
		ErrorResponse(statusFor(err), errorMessage(err)).Write(w)
		return
	}

	resp := map[string]any{"message": "Budget deleted successfully"}
	if sessionID := parser.Get("session"); sessionID != "" {
		err := s.sessions.Do(sessionID, user, func(p *budgetpage.Page) {
			p.ApplyDeletion(id)
			view, _ := p.Current()
			resp["progress"] = view
			resp["remaining"] = len(p.Snapshot())
		})
		if err != nil {
			logger.WarnContext(ctx, "Deleted budget for a closed page", log.FieldSessionID, sessionID, log.FieldBudgetID, id)
		}
	}

	NewResponse().
		TriggerBudgetDeleted(id).
		JSON(resp).
		Write(w)
}

// expenseJSON is the wire shape of a recorded expense.
type expenseJSON struct {
	ID       int64     `json:"id"`
	Category string    `json:"category"`
	Amount   string    `json:"amount"`
	Date     time.Time `json:"date"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.userID(r)

	e, err := parseExpenseForm(NewRequestBodyParser(r), user)
	if err == nil {
		e, err = s.api.AddExpense(ctx, e)
	}
	if err != nil {
		log.FromContext(ctx).LogError(ctx, "Failed to record expense", err, log.OpExpense, log.NewFields().WithUser(user))
		ErrorResponse(statusFor(err), errorMessage(err)).Write(w)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Expense recorded",
		log.FieldUserID, user, log.FieldCategory, e.Category, log.FieldAmount, e.Amount.StringFixed(2))
	NewResponse().
		Status(http.StatusCreated).
		JSON(expenseJSON{ID: e.ID, Category: e.Category, Amount: e.Amount.StringFixed(2), Date: e.Date}).
		Write(w)
}

// handleSmartSaver answers with a plan body in every case. Rejected input
// gets the invalid-input plan with a 400.
func (s *Server) handleSmartSaver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		ErrorResponse(statusFor(err), errorMessage(err)).Write(w)
		return
	}

	in, err := core.ParseSavingsInput(
		parser.Get("income"),
		parser.Get("expenses"),
		parser.Get("goal_amount"),
		parser.Get("timeframe"),
		parser.Get("goal_name"),
	)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Rejected savings plan input", log.FieldError, err.Error())
		NewResponse().Status(http.StatusBadRequest).JSON(core.InvalidSavingsPlan(err)).Write(w)
		return
	}

	plan := core.NewSavingsPlan(in)
	log.FromContext(ctx).InfoContext(ctx, "Savings plan built",
		log.FieldOperation, log.OpPlan, "feasible", plan.Feasible, "timeframe", in.Timeframe)
	NewResponse().JSON(plan).Write(w)
}
