// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and
// external adapters (infrastructure). The command-understanding core depends
// only on these abstractions; sqlite, yaml, and CLI concerns live behind
// them in the infrastructure layer.
package ports

import (
	"context"
	"encoding/json"

	"github.com/parley-ai/parley/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.parley/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// PreferenceStore durably persists per-user preference values. Values are
// JSON-shaped; Get reports absence through its second return rather than an
// error. I/O failures propagate unmodified.
type PreferenceStore interface {
	Get(key, userID string) (json.RawMessage, bool, error)
	Set(key string, value any, userID string) error
}

// SessionStore durably persists session snapshots. Load is not used by the
// core itself but is available to the orchestration layer.
type SessionStore interface {
	Save(session *domain.Session) error
	Load(sessionID string) (*domain.Session, error)
}

// UsageStore reports per-user application usage, sorted descending by
// launch count.
type UsageStore interface {
	AllUsage(userID string) ([]domain.ApplicationUsage, error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external
// services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
