package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/npillmayer/blocker/config"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/blocker/storage/filestore"
	"github.com/npillmayer/blocker/storage/memstore"
	"github.com/npillmayer/blocker/storage/redisstore"
	"github.com/npillmayer/blocker/storage/sqlstore"
)

// OpenBackend opens the storage backend selected by cfg. Primary keys and
// backup keys do not collide, so one backend serves as both channels.
func OpenBackend(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memstore.New(), nil
	case config.BackendFile:
		fs, err := filestore.Open(filepath.Join(cfg.DataDir, "store"))
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		db, err := sqlstore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendRedis:
		rs, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
