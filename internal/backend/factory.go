package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bilancio/internal/amqp"
	"bilancio/internal/log"
	"bilancio/internal/market"
	"bilancio/internal/ports"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
	"bilancio/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}
	result := &BackendResult{Store: store}

	if config.MarketYieldURL != "" {
		provider, err := market.NewHTTPProvider(config.MarketYieldURL, nil)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize market provider: %w", err)
		}
		result.Yields = provider
		f.logger.Info("Initialized market yield provider", "url", config.MarketYieldURL)
	}

	// AMQP is optional; a broker that is down at startup only disables events.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			result.Events = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", result.Events != nil,
		"yields_enabled", result.Yields != nil)
	return result, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (ports.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite database", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		store, err := postgres.Open(ctx, config.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.Info("Connected to Postgres")
		return store, nil
	case MemoryBackend:
		f.logger.Warn("Using in-memory backend, data is lost on exit")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// Migrate applies pending schema migrations for the configured backend and
// returns the resulting version. The memory backend has no schema.
func Migrate(ctx context.Context, config Config) (uint, error) {
	if err := config.Validate(); err != nil {
		return 0, err
	}
	switch config.Type {
	case SQLiteBackend:
		if err := os.MkdirAll(filepath.Dir(config.SQLiteDBPath), 0755); err != nil {
			return 0, fmt.Errorf("create db directory: %w", err)
		}
		return storage.RunMigrations(config.SQLiteDBPath)
	case PostgresBackend:
		store, err := postgres.Open(ctx, config.PostgresURL)
		if err != nil {
			return 0, err
		}
		defer store.Close()
		return store.Migrate()
	default:
		return 0, nil
	}
}
