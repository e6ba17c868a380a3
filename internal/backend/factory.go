package backend

import (
	"context"
	"fmt"
	"log/slog"

	applog "fintrack/internal/log"
	"fintrack/internal/kv/memory"
	"fintrack/internal/kv/remote"
	"fintrack/internal/kv/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	return &DefaultFactory{
		logger: applog.WithComponent(logger, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRemoteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := remote.New(config.KVBaseURL, config.KVToken, config.KVTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote KV client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized remote backend",
		"base_url", config.KVBaseURL,
		"timeout", config.KVTimeout,
		"has_token", config.KVToken != "")

	return &BackendResult{Store: client}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.InfoContext(ctx, "Initialized memory backend",
		"data_directory", dataDir,
		"seeded_keys", store.Len())

	return &BackendResult{Store: store}, nil
}
