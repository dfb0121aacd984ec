package backend

import (
	"fmt"

	"neuralbudget/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: t,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		PostgresHost:     appConfig.PostgresHost,
		PostgresPort:     appConfig.PostgresPort,
		PostgresDB:       appConfig.PostgresDB,
		PostgresUser:     appConfig.PostgresUser,
		PostgresPassword: appConfig.PostgresPassword,
		PostgresSSLMode:  appConfig.PostgresSSLMode,

		DataDirectory: appConfig.DataDir,
		DefaultUserID: appConfig.DefaultUserID,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case Postgres:
		if c.PostgresHost == "" || c.PostgresDB == "" || c.PostgresUser == "" {
			return fmt.Errorf("host, database and user are required for postgres backend")
		}
	case Memory:
		// DataDirectory defaults to "data"
	}
	return nil
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{SQLite, Postgres, Memory}
}

// TypeStrings returns all valid backend type names.
func TypeStrings() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
