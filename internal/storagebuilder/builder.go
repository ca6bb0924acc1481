package storagebuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/lomoval/sharedcal/internal/storage"
	memorystorage "github.com/lomoval/sharedcal/internal/storage/memory"
	sqlstorage "github.com/lomoval/sharedcal/internal/storage/sql"
	log "github.com/sirupsen/logrus"
)

const (
	TypeMemory = "memory"
	TypeSQL    = "sql"
)

type Config struct {
	StorageType string
	Database    sqlstorage.Config
	// EnsureSchema creates missing sql tables on start.
	EnsureSchema bool
}

func New(config Config) (storage.Storage, error) {
	switch config.StorageType {
	case TypeMemory:
		log.Warn("events are kept in memory and are lost on restart")
		return memorystorage.New(), nil
	case TypeSQL:
		return newSQL(config)
	default:
		return nil, fmt.Errorf("unknown storage type %s", config.StorageType)
	}
}

func newSQL(config Config) (storage.Storage, error) {
	s := sqlstorage.New(config.Database)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database %s %d: %w", config.Database.Host, config.Database.Port, err)
	}
	if !config.EnsureSchema {
		return s, nil
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close(ctx)
		return nil, err
	}
	log.Infof("schema of %s is ready", config.Database.Database)
	return s, nil
}
