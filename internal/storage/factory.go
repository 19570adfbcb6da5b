package storage

import (
	"fmt"

	"tickerchat-go/internal/config"
)

// NewBackendFromConfig builds the backend selected by the configuration.
// The caller still has to Initialize it.
func NewBackendFromConfig(cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackend {
	case "file":
		return NewFileBackend(cfg.StorageBaseDir), nil
	case "redis":
		return NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix), nil
	case "mongodb":
		return NewMongoDBBackend(cfg.MongoDBURI, cfg.MongoDatabase), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
