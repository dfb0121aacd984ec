// Package google mirrors budgets into a Google Sheets worksheet so they can be
// reviewed and shared outside the app.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Budgets"

// Config selects the spreadsheet and worksheet budgets are mirrored into.
type Config struct {
	SpreadsheetID string
	SheetName     string

	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string

	// RetryAttempts and RetryDelay control the backoff on rate limits and
	// server errors.
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Client writes one row per budget: id, user, category, amount, period,
// updated_at.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	attempts      uint
	delay         time.Duration
	logger        *slog.Logger
}

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = slog.Default()
	}

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	jwt, err := googleauth.JWTConfigFromJSON(creds, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	// token fetches and API calls share the pooled transport
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(jwt.Client(authCtx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets client ready", "spreadsheet_id", cfg.SpreadsheetID)
	return newClient(svc, cfg, logger), nil
}

func newClient(svc *gsheet.Service, cfg Config, logger *slog.Logger) *Client {
	c := &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     strings.TrimSpace(cfg.SheetName),
		attempts:      cfg.RetryAttempts,
		delay:         cfg.RetryDelay,
		logger:        logger,
	}
	if c.sheetName == "" {
		c.sheetName = defaultSheetName
	}
	if c.attempts == 0 {
		c.attempts = 3
	}
	if c.delay == 0 {
		c.delay = 2 * time.Second
	}
	return c
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// UpsertBudget writes the row for a budget, replacing an existing row with the
// same id or appending a new one.
func (c *Client) UpsertBudget(ctx context.Context, row Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	return c.withRetry(ctx, "upsert", func() error {
		idx, err := c.findRow(ctx, row.ID)
		if err != nil {
			return err
		}
		vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
		if idx > 0 {
			rng := fmt.Sprintf("%s!A%d:F%d", c.sheetName, idx, idx)
			_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
				ValueInputOption("RAW").Context(ctx).Do()
			return err
		}
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:F", vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
}

// DeleteBudget clears the row for id. A missing row is not an error.
func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	return c.withRetry(ctx, "delete", func() error {
		idx, err := c.findRow(ctx, id)
		if err != nil || idx == 0 {
			return err
		}
		rng := fmt.Sprintf("%s!A%d:F%d", c.sheetName, idx, idx)
		_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
}

func (c *Client) findRow(ctx context.Context, id int64) (int, error) {
	rng := c.sheetName + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return rowIndexOf(resp.Values, id), nil
}

func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(fn,
		retry.Context(ctx),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "sheets call failed, retrying", "op", op, "attempt", n+1, "error", err)
		}),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("sheets %s: %w", op, err)
	}
	return nil
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}
