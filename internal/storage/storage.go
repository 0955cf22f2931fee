// /internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	commandHistoryLimit int = 20
	connMaxLifetime         = 5 * time.Minute
)

// ErrSessionNotFound is returned when a guild has no music session row.
var ErrSessionNotFound = errors.New("music session not found")

// Storage is the relational store shared by the whole process.
type Storage struct {
	db     *sql.DB
	driver string
}

// New opens the pool for driver ("mysql" or "sqlite3") and checks connectivity.
func New(ctx context.Context, driver, dsn string, maxOpenConns int) (*Storage, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite3" {
		// a single writer keeps SQLite from returning SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	return &Storage{db: db, driver: driver}, nil
}

// NewWithDB wraps an already opened pool.
func NewWithDB(db *sql.DB, driver string) *Storage {
	return &Storage{db: db, driver: driver}
}

// DB exposes the underlying pool.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Driver reports the driver name the pool was opened with.
func (s *Storage) Driver() string {
	return s.driver
}

func (s *Storage) Close() error {
	return s.db.Close()
}
