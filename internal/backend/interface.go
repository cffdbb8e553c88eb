// Package backend assembles the record store, the change publisher and the
// spreadsheet mirror selected by configuration.
package backend

import (
	"context"

	"confeitaria/internal/amqp"
	"confeitaria/internal/sheets"
	"confeitaria/internal/store"
)

// CleanupFunc releases what a factory opened.
type CleanupFunc func() error

// Publisher announces committed changes.
type Publisher interface {
	PublishChange(ctx context.Context, collection string, op amqp.Op, recordID int64) error
}

// Result holds everything a command needs to run against the configured
// backend. Broker is nil when AMQP is disabled or unreachable; Mirror is nil
// when no mirror is configured.
type Result struct {
	Store     store.Store
	Publisher Publisher
	Broker    *amqp.Client
	Mirror    sheets.Mirror
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
	CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	SnapshotPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Mirror                   MirrorType
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	SnapshotBackend BackendType = "snapshot"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SnapshotBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// MirrorType selects where the worker copies records to.
type MirrorType string

const (
	NoMirror     MirrorType = "none"
	MemoryMirror MirrorType = "memory"
	GoogleMirror MirrorType = "google"
)

func (m MirrorType) IsValid() bool {
	switch m {
	case NoMirror, MemoryMirror, GoogleMirror:
		return true
	default:
		return false
	}
}
