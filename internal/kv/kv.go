// Package kv provides the persistent local key-value port used for drafts,
// cookies and cached UI hints, with memory, file, Redis, SQLite and
// S3-compatible object backends.
package kv

import (
	"context"
	"fmt"
	"io"
	"strings"

	"hypda/entry/internal/config"
)

// Store is a string key-value store. Set replaces the whole value.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverRedis  Driver = "redis"
	DriverSQLite Driver = "sqlite"
	DriverObject Driver = "object"
)

// Open selects a Store implementation from cfg.Driver (default file).
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(cfg.Driver)))
	if driver == "" {
		driver = DriverFile
	}
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(cfg.FilePath)
	case DriverRedis:
		return NewRedis(ctx, cfg.RedisURL, cfg.RedisKeyNS)
	case DriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	case DriverObject:
		return NewObject(ctx, ObjectConfig{
			Endpoint:  cfg.ObjectEndpoint,
			Bucket:    cfg.ObjectBucket,
			Prefix:    cfg.ObjectPrefix,
			AccessKey: cfg.ObjectAccessKey,
			SecretKey: cfg.ObjectSecretKey,
			Region:    cfg.ObjectRegion,
			UseTLS:    cfg.ObjectUseTLS,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// Close releases the backend's resources if it holds any.
func Close(store Store) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
