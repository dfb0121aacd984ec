package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralbudget/internal/cache"
	"neuralbudget/internal/core"
	"neuralbudget/internal/log"
	"neuralbudget/internal/memory"
	"neuralbudget/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New([]string{"groceries", "travel", "pet_care"})
	svc := services.NewBudgetService(store, nil, cache.NewLRU[string, core.Analysis](10, time.Minute))
	srv, err := NewServer(Options{
		Addr:          ":0",
		DefaultUserID: "default",
		Logger:        log.New(log.Config{Output: io.Discard}),
	}, svc)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(user string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/budgets/set-budget/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	return req
}

// embeddedSnapshot returns the JSON the budgets page embeds for its script.
func embeddedSnapshot(t *testing.T, body string) string {
	t.Helper()
	const open = `type="application/json">`
	start := strings.Index(body, open)
	require.GreaterOrEqual(t, start, 0, "page embeds no snapshot")
	start += len(open)
	end := strings.Index(body[start:], "</script>")
	require.GreaterOrEqual(t, end, 0)
	return body[start : start+end]
}

// openSession renders the budgets page and opens a session with its snapshot.
func openSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/set-budget/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/budgets/session/",
		strings.NewReader(embeddedSnapshot(t, rec.Body.String()))))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Session string `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Session)
	return resp.Session
}

type progressView struct {
	Label    string `json:"label"`
	Progress struct {
		SpentAmount  decimal.Decimal `json:"spent_amount"`
		BudgetAmount decimal.Decimal `json:"budget_amount"`
		Percentage   decimal.Decimal `json:"percentage"`
		Tier         core.Tier       `json:"tier"`
		Visible      bool            `json:"visible"`
	} `json:"progress"`
	Matched *struct {
		ID int64 `json:"id"`
	} `json:"matched"`
}

func getProgress(t *testing.T, srv *Server, path string) progressView {
	t.Helper()
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v progressView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(log.RequestIDHeader))
	}
}

func TestReadyReportsSecurityCounters(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, httptest.NewRequest(http.MethodGet, "/.env", nil))
	do(t, srv, httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"status":"ready","rate_limit_hits":0,"suspicious_requests":2,"open_page_sessions":0}`,
		rec.Body.String())
}

func TestSetBudgetFlow(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := store.AddExpense(context.Background(), core.Expense{UserID: "default", Category: "groceries", Amount: decimal.NewFromInt(450)})
	require.NoError(t, err)

	rec := do(t, srv, postForm("", url.Values{"category": {"Groceries"}, "budget": {"500"}, "period": {"monthly"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/budgets/set-budget/?saved=groceries", rec.Header().Get("Location"))

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/set-budget/?saved=groceries", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Budget for groceries set successfully!")
	assert.Contains(t, body, `id="processed_categories_json"`)
	assert.Contains(t, body, "🛒 Groceries")
	assert.Contains(t, body, "📝 Pet Care")
	assert.Contains(t, body, "tier-high")

	snap, err := core.ParseSnapshot([]byte(embeddedSnapshot(t, body)))
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "groceries", snap[0].Name)
	assert.Equal(t, "90", snap[0].ProgressPercentage.String())
}

func TestSetBudgetRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	for name, form := range map[string]url.Values{
		"negative amount": {"category": {"food"}, "budget": {"-5"}},
		"empty category":  {"category": {""}, "budget": {"5"}},
		"bad period":      {"category": {"food"}, "budget": {"5"}, "period": {"daily"}},
	} {
		rec := do(t, srv, postForm("", form))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestGetBudgetsIsPerUser(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, postForm("alice", url.Values{"category": {"travel"}, "budget": {"120.5"}, "period": {"weekly"}}))

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/get_budgets/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"budgets":[]}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/budgets/get_budgets/", nil)
	req.Header.Set(UserHeader, "alice")
	rec = do(t, srv, req)

	var resp struct {
		Budgets []budgetJSON `json:"budgets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Budgets, 1)
	assert.Equal(t, "travel", resp.Budgets[0].Category)
	assert.Equal(t, "120.50", resp.Budgets[0].Budget)
	assert.Equal(t, "weekly", resp.Budgets[0].Period)
}

func TestDeleteBudget(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, postForm("", url.Values{"category": {"travel"}, "budget": {"100"}}))

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/get_budgets/", nil))
	var resp struct {
		Budgets []budgetJSON `json:"budgets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Budgets, 1)
	id := resp.Budgets[0].ID

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/budgets/delete_budget/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid request method"}`, rec.Body.String())

	body, _ := json.Marshal(map[string]int64{"budget_id": id})
	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/budgets/delete_budget/", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Budget deleted successfully"}`, rec.Body.String())

	var trigger map[string]struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &trigger))
	assert.Equal(t, id, trigger["budget:deleted"].ID)

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/budgets/delete_budget/", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/budgets/delete_budget/", strings.NewReader(`{"budget_id":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := store.AddExpense(context.Background(), core.Expense{UserID: "default", Category: "travel", Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)
	do(t, srv, postForm("", url.Values{"category": {"travel"}, "budget": {"100"}}))
	session := openSession(t, srv)

	tests := []struct {
		label   string
		visible bool
		tier    core.Tier
		pct     string
	}{
		{"travel", true, core.TierMedium, "60"},
		{"✈️ Travel", true, core.TierMedium, "60"},
		{"rent", true, core.TierLow, "0"},
		{"", false, "", "0"},
	}
	for _, tt := range tests {
		v := getProgress(t, srv, "/budgets/progress?session="+session+"&category="+url.QueryEscape(tt.label))
		assert.Equal(t, tt.visible, v.Progress.Visible, tt.label)
		assert.Equal(t, tt.tier, v.Progress.Tier, tt.label)
		assert.Equal(t, tt.pct, v.Progress.Percentage.String(), tt.label)
	}
}

func TestProgressNeedsOpenSession(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/progress?category=travel", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/progress?session=nope&category=travel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	session := openSession(t, srv)
	req := httptest.NewRequest(http.MethodGet, "/budgets/progress?session="+session+"&category=travel", nil)
	req.Header.Set(UserHeader, "mallory")
	assert.Equal(t, http.StatusNotFound, do(t, srv, req).Code, "sessions belong to the user who opened them")

	rec = do(t, srv, httptest.NewRequest(http.MethodPost, "/budgets/session/", strings.NewReader(`{"not":"a list"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressUsesRenderedSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, postForm("", url.Values{"category": {"groceries"}, "budget": {"500"}}))
	session := openSession(t, srv)

	// another tab raises the budget after this page was rendered
	rec := do(t, srv, postForm("", url.Values{"category": {"groceries"}, "budget": {"900"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	v := getProgress(t, srv, "/budgets/progress?session="+session+"&category=groceries")
	require.NotNil(t, v.Matched)
	assert.Equal(t, "500", v.Progress.BudgetAmount.String())

	fresh := openSession(t, srv)
	v = getProgress(t, srv, "/budgets/progress?session="+fresh+"&category=groceries")
	assert.Equal(t, "900", v.Progress.BudgetAmount.String(), "a reloaded page sees the new budget")
}

func TestProgressResetAndEdit(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, postForm("", url.Values{"category": {"travel"}, "budget": {"100"}}))
	session := openSession(t, srv)

	v := getProgress(t, srv, "/budgets/progress/edit?session="+session+"&category=TRAVEL")
	assert.Equal(t, "travel", v.Label, "edit resolves the option case-insensitively")
	require.NotNil(t, v.Matched)
	assert.True(t, v.Progress.Visible)

	rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/budgets/progress/reset?session="+session, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var reset progressView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reset))
	assert.False(t, reset.Progress.Visible)
	assert.Empty(t, reset.Label)
}

func TestDeleteBudgetUpdatesPageSession(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, postForm("", url.Values{"category": {"travel"}, "budget": {"100"}}))
	do(t, srv, postForm("", url.Values{"category": {"groceries"}, "budget": {"300"}}))
	session := openSession(t, srv)

	v := getProgress(t, srv, "/budgets/progress?session="+session+"&category=travel")
	require.NotNil(t, v.Matched)
	travelID := v.Matched.ID

	body, _ := json.Marshal(map[string]any{"budget_id": travelID, "session": session})
	rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/budgets/delete_budget/", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message   string       `json:"message"`
		Remaining int          `json:"remaining"`
		Progress  progressView `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Budget deleted successfully", resp.Message)
	assert.Equal(t, 1, resp.Remaining)
	assert.True(t, resp.Progress.Progress.Visible, "selection stays shown")
	assert.Nil(t, resp.Progress.Matched, "deleted budget no longer matches")

	v = getProgress(t, srv, "/budgets/progress?session="+session+"&category=travel")
	assert.Nil(t, v.Matched)
	assert.True(t, v.Progress.BudgetAmount.IsZero())
}

func TestAddExpenseEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, postForm("", url.Values{"category": {"travel"}, "budget": {"100"}}))

	req := httptest.NewRequest(http.MethodPost, "/budgets/expenses/",
		strings.NewReader(`{"category":"Travel","amount":"45.5","date":"2025-03-02"}`))
	rec := do(t, srv, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var e expenseJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.NotZero(t, e.ID)
	assert.Equal(t, "travel", e.Category)
	assert.Equal(t, "45.50", e.Amount)
	assert.True(t, e.Date.Equal(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)), e.Date.String())

	session := openSession(t, srv)
	v := getProgress(t, srv, "/budgets/progress?session="+session+"&category=travel")
	assert.Equal(t, "45.5", v.Progress.SpentAmount.String())

	for name, body := range map[string]string{
		"zero amount":  `{"category":"travel","amount":"0"}`,
		"no category":  `{"amount":"5"}`,
		"bad date":     `{"category":"travel","amount":"5","date":"yesterday"}`,
		"not a number": `{"category":"travel","amount":"lots"}`,
	} {
		rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/budgets/expenses/", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestSmartSaverEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	post := func(body string) (*httptest.ResponseRecorder, core.SavingsPlan) {
		t.Helper()
		rec := do(t, srv, httptest.NewRequest(http.MethodPost, "/budgets/smart-saver/", strings.NewReader(body)))
		var plan core.SavingsPlan
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan), rec.Body.String())
		return rec, plan
	}

	rec, plan := post(`{"income":50000,"expenses":30000,"goal_amount":12000,"timeframe":6,"goal_name":"Phone"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, plan.Feasible)
	assert.Equal(t, "2000", plan.MonthlySavingsTarget.String())
	assert.Len(t, plan.ChartData.Labels, 6)

	rec, plan = post(`{"income":"50000","expenses":"48000","goal_amount":"12000","timeframe":"3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, plan.Feasible)
	assert.Equal(t, 6, plan.SuggestedTimeframe)

	rec, plan = post(`{"income":"abc","expenses":"1","goal_amount":"1","timeframe":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Input ❌", plan.Title)
	assert.Equal(t, "Income, expenses, goal amount, and timeframe must be numbers.", plan.Summary)
}

type failingAPI struct{ BudgetAPI }

func (failingAPI) Ping(context.Context) error { return errors.New("db down") }
func (failingAPI) Analysis(context.Context, string) (core.Analysis, error) {
	return core.Analysis{}, errors.New("db down")
}

func TestErrorsAreHidden(t *testing.T) {
	srv, err := NewServer(Options{Logger: log.New(log.Config{Output: io.Discard})}, failingAPI{})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/set-budget/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestRateLimitOnWrites(t *testing.T) {
	store := memory.New(nil)
	srv, err := NewServer(Options{Logger: log.New(log.Config{Output: io.Discard}), RateLimit: 2, DefaultUserID: "u"},
		services.NewBudgetService(store, nil, nil))
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	form := url.Values{"category": {"food"}, "budget": {"1"}}
	assert.Equal(t, http.StatusSeeOther, do(t, srv, postForm("", form)).Code)
	assert.Equal(t, http.StatusSeeOther, do(t, srv, postForm("", form)).Code)
	rec := do(t, srv, postForm("", form))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// reads are never limited
	assert.Equal(t, http.StatusOK, do(t, srv, httptest.NewRequest(http.MethodGet, "/budgets/get_budgets/", nil)).Code)
}

func TestPageScriptDrivesSession(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/static/budgets.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	script := rec.Body.String()
	assert.Contains(t, script, `"/budgets/session/"`)
	assert.Contains(t, script, `"/budgets/progress/reset"`)
	assert.Contains(t, script, `"/budgets/progress/edit"`)
	assert.Contains(t, script, `r.headers.get("HX-Trigger")`)
}
