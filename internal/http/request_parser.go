package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"neuralbudget/internal/core"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields by name.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like JSON, otherwise as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	switch {
	case body == "":
		p.formData = url.Values{}
	case body[0] == '{':
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", errBadRequest)
		}
	default:
		p.formData, p.err = url.ParseQuery(body)
		if p.err != nil {
			p.err = fmt.Errorf("%w: malformed form body", errBadRequest)
		}
	}
	return p.err
}

// Get returns a trimmed, sanitized field value.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding space.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// parseBudgetForm builds a budget from the set-budget form fields
// category, budget and period.
func parseBudgetForm(p *RequestBodyParser, userID string) (core.Budget, error) {
	if err := p.Parse(); err != nil {
		return core.Budget{}, err
	}
	amount, err := core.ParseAmount(p.Get("budget"))
	if err != nil {
		return core.Budget{}, err
	}
	period, err := core.ParsePeriod(p.Get("period"))
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		UserID:   userID,
		Category: p.Get("category"),
		Amount:   amount,
		Period:   period,
	}, nil
}

// parseBudgetID reads "budget_id" as a positive integer. JSON numbers and
// numeric strings are both accepted.
func parseBudgetID(p *RequestBodyParser) (int64, error) {
	if err := p.Parse(); err != nil {
		return 0, err
	}
	raw := p.Get("budget_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid budget_id %q", errBadRequest, raw)
	}
	return id, nil
}

// parseExpenseForm builds an expense from the fields category, amount and
// an optional date in YYYY-MM-DD form.
func parseExpenseForm(p *RequestBodyParser, userID string) (core.Expense, error) {
	if err := p.Parse(); err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		UserID:   userID,
		Category: p.Get("category"),
		Amount:   amount,
		Date:     time.Now().UTC(),
	}
	if raw := p.Get("date"); raw != "" {
		if e.Date, err = time.Parse(time.DateOnly, raw); err != nil {
			return core.Expense{}, fmt.Errorf("%w: invalid date %q", errBadRequest, raw)
		}
	}
	return e, nil
}
