/*
Package sqlstore is a storage.Store keeping values in an SQLite table,
accessed through gorm.

Changes are reported to watchers of the same Store instance only; SQLite
offers no notification channel between processes.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/npillmayer/blocker/maybe"
	"github.com/npillmayer/blocker/result"
	"github.com/npillmayer/blocker/storage"
	"github.com/npillmayer/schuko/tracing"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// tracer traces with key 'blocker.storage'.
func tracer() tracing.Trace {
	return tracing.Select("blocker.storage")
}

// Entry is a row of the key-value table.
type Entry struct {
	Name      string `gorm:"primaryKey;size:512"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName names the key-value table.
func (Entry) TableName() string {
	return "kv_entries"
}

// Store is an SQLite key-value channel.
type Store struct {
	storage.Watchers
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (and if necessary creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	tracer().Debugf("sqlstore: opened %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) result.Result[maybe.Maybe[[]byte]] {
	var e Entry
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result.Ok(maybe.Nothing[[]byte]())
	}
	if err != nil {
		return result.Err[maybe.Maybe[[]byte]](err)
	}
	return result.Ok(maybe.Just(e.Value))
}

func (s *Store) Set(ctx context.Context, key string, value []byte) result.Result[result.Unit] {
	e := Entry{Name: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return result.Err[result.Unit](err)
	}
	s.Fire(storage.Change{Key: key, Value: value})
	return result.Done()
}

func (s *Store) Remove(ctx context.Context, key string) result.Result[result.Unit] {
	tx := s.db.WithContext(ctx).Where("name = ?", key).Delete(&Entry{})
	if tx.Error != nil {
		return result.Err[result.Unit](tx.Error)
	}
	if tx.RowsAffected > 0 {
		s.Fire(storage.Change{Key: key, Removed: true})
	}
	return result.Done()
}

func (s *Store) Keys(ctx context.Context, prefix string) result.Result[[]string] {
	keys := []string{}
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("substr(name, 1, ?) = ?", len(prefix), prefix).
		Order("name").Pluck("name", &keys).Error
	return result.Of(keys, err)
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
