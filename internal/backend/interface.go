package backend

import (
	"context"
	"time"

	"carteira/internal/amqp"
	"carteira/internal/ledger"
	"carteira/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired ledger and an optional cleanup function
type BackendResult struct {
	Service *services.LedgerService
	Store   *ledger.Store
	// Events is nil when AMQP is disabled or unreachable.
	Events  *amqp.Client
	Cleanup CleanupFunc
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend restores the ledger and builds the service around it
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific; empty or missing means an empty ledger
	SeedFile string

	// Ledger service
	Location       *time.Location
	Now            func() time.Time
	DedupStrategy  string
	StatsCacheSize int
	StatsCacheTTL  time.Duration

	// AMQP, optional for both backends
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
