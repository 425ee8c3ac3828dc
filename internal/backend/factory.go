package backend

import (
	"context"
	"fmt"

	"agrocost/internal/kvstore"
	applog "agrocost/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store kvstore.Store
		err   error
	)
	switch config.Type {
	case MemoryBackend:
		store = kvstore.NewMemory()
	case FileBackend:
		store, err = kvstore.NewJSONFile(config.DataFile)
	case SQLiteBackend:
		store, err = kvstore.NewSQLite(config.SQLiteDBPath)
	case PostgresBackend:
		store, err = kvstore.NewPostgres(ctx, config.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", config.Type, err)
	}

	encrypted := config.EncryptionKey != ""
	if encrypted {
		sealed, err := kvstore.NewSealed(store, config.EncryptionKey, config.SigningKey)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to enable encryption: %w", err)
		}
		store = sealed
	}

	f.logger.InfoContext(ctx, "Initialized store",
		applog.FieldBackend, config.Type.String(),
		"encrypted", encrypted)

	return &StoreResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
