// Package backend opens the budget store selected by configuration.
package backend

import (
	"context"

	"neuralbudget/internal/ports"
)

// CleanupFunc releases the resources held by a store.
type CleanupFunc func() error

// Result is an opened store plus its cleanup, which may be nil.
type Result struct {
	Store   ports.Store
	Cleanup CleanupFunc
}

// Close runs the cleanup when there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates stores based on configuration.
type Factory interface {
	Open(ctx context.Context, config Config) (*Result, error)
}

// Config holds what each backend needs to open.
type Config struct {
	Type Type

	// SQLite
	SQLiteDBPath string

	// PostgreSQL
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Memory; seed files are read from here and seeded expenses belong to
	// DefaultUserID
	DataDirectory string
	DefaultUserID string
}

type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
	Memory   Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Postgres, Memory:
		return true
	default:
		return false
	}
}
