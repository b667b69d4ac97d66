package backend

import (
	"context"
	"errors"
	"fmt"

	"fuellog/internal/amqp"
	ledgermem "fuellog/internal/ledger/memory"
	applog "fuellog/internal/log"
	"fuellog/internal/seed"
	"fuellog/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend builds the store selected by config. An AMQP connection
// failure is logged and leaves the backend without a publisher.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	data, err := seed.Load(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed data: %w", err)
	}

	var res *Result
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config, data)
	case MemoryBackend:
		res, err = f.createMemoryBackend(ctx, data)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Publisher = client
			storeCleanup := res.Cleanup
			res.Cleanup = func() error {
				return errors.Join(client.Close(), storeCleanup())
			}
		}
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config, data seed.Data) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath,
		storage.WithLogger(f.logger.WithComponent(applog.ComponentStorage)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := repo.ApplySeed(ctx, data); err != nil {
		repo.Close()
		return nil, fmt.Errorf("apply seed data: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"seed_file", config.SeedFile)

	return &Result{
		Store:   repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, data seed.Data) (*Result, error) {
	store := ledgermem.New(data)

	f.logger.InfoContext(ctx, "Initialized memory backend",
		"vehicles", len(data.Vehicles),
		"drivers", len(data.Drivers))

	return &Result{
		Store:   store,
		Ping:    func(context.Context) error { return nil },
		Cleanup: func() error { return nil },
	}, nil
}
