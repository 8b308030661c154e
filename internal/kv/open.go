package kv

import (
	"context"
	"fmt"

	"collate/api/internal/config"
)

// Open builds the backend named by cfg.Store.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Store {
	case "memory":
		return NewMemory(), nil
	case "", "file":
		return NewFile(cfg.DataDir)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case "redis":
		return NewRedis(cfg.RedisURL, cfg.RedisPrefix)
	case "s3":
		return NewObject(ctx, ObjectConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
	case "git":
		return OpenGit(cfg.GitDir, "collate")
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
