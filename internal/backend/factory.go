package backend

import (
	"context"
	"fmt"

	"exptracker/internal/amqp"
	"exptracker/internal/expenses"
	"exptracker/internal/expenses/memory"
	"exptracker/internal/expenses/remote"
	"exptracker/internal/log"
	"exptracker/internal/services"
	gsheet "exptracker/internal/sheets/google"
	"exptracker/internal/storage"
	"exptracker/internal/storage/postgres"
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
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case RemoteBackend:
		res, err = f.createRemoteBackend(config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		res, err = f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.withEvents(res, config)
	f.logger.InfoContext(ctx, "Initialized backend", log.FieldBackend, config.Type.String())
	return res, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*Result, error) {
	client, err := remote.New(config.APIURL, config.APITimeout, remote.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize expense API client: %w", err)
	}
	f.logger.Info("Using remote expense API", "url", config.APIURL, "timeout", config.APITimeout.String())
	return &Result{API: client, Authenticator: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &Result{API: store, Authenticator: expenses.LocalAuthenticator{}}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		API:           repo,
		Authenticator: expenses.LocalAuthenticator{},
		Ready:         repo.Ping,
		Cleanup:       repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := postgres.New(ctx, postgres.Config{DSN: config.PostgresDSN}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
	}
	return &Result{
		API:           repo,
		Authenticator: expenses.LocalAuthenticator{},
		Ready:         repo.Ping,
		Cleanup: func() error {
			repo.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
	return &Result{API: cli, Authenticator: expenses.LocalAuthenticator{}}, nil
}

// withEvents wraps the store so every add publishes an expense.added event.
// A broker that cannot be reached leaves the store unwrapped.
func (f *DefaultFactory) withEvents(res *Result, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.API = services.NewExpenseService(res.API, client, f.logger)
	res.Cleanup = chainCleanup(res.Cleanup, client.Close)
}

func chainCleanup(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("cleanup: %v", errs)
		}
		return nil
	}
}
