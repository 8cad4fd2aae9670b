package backend

import (
	"context"
	"fmt"

	"carteira/internal/amqp"
	applog "carteira/internal/log"
	"carteira/internal/ledger"
	"carteira/internal/seed"
	"carteira/internal/services"
	"carteira/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	dial   func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dial:   amqp.NewClient,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachEvents(result, config)

	matcher, err := services.GetDuplicateMatcher(dedupOrDefault(config.DedupStrategy))
	if err != nil {
		result.Close()
		return nil, err
	}

	var publisher services.EventPublisher
	if result.Events != nil {
		publisher = result.Events
	}
	result.Service = services.NewLedgerService(result.Store, publisher, services.LedgerServiceConfig{
		Location:       config.Location,
		Now:            config.Now,
		Matcher:        matcher,
		StatsCacheSize: config.StatsCacheSize,
		StatsCacheTTL:  config.StatsCacheTTL,
	})

	f.logger.InfoContext(ctx, "Ledger backend ready",
		"backend", config.Type.String(),
		"records", result.Store.Len(),
		"dedup_strategy", dedupOrDefault(config.DedupStrategy),
		"amqp_enabled", result.Events != nil)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	records, err := repo.Load(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   ledger.NewStore(records, repo),
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	seeded, err := seed.Load(config.SeedFile, config.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed ledger: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend",
		"seed_file", config.SeedFile,
		"seeded", len(seeded))

	return &BackendResult{
		Store: ledger.NewStore(seeded, nil),
	}, nil
}

// attachEvents connects to AMQP when configured. A broker that cannot be
// reached disables events instead of failing the backend.
func (f *DefaultFactory) attachEvents(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Events = client
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		err := client.Close()
		if storeCleanup != nil {
			if cerr := storeCleanup(); cerr != nil {
				return cerr
			}
		}
		return err
	}
}

func dedupOrDefault(name string) string {
	if name == "" {
		return services.DedupSeries
	}
	return name
}
