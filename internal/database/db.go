package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if necessary) the SQLite database file and
// verifies the connection. The DSN enables WAL journaling so readers do
// not block the single writer, a 30s busy timeout, and foreign key
// enforcement. Writes are serialized at the file level by SQLite; the
// repository layer adds a bounded retry on top for the residual
// busy/locked errors.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=30000&_foreign_keys=on&_synchronous=NORMAL",
		path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings. WAL lets concurrent readers proceed while one
	// writer holds the file lock; writer collisions surface as
	// SQLITE_BUSY and are retried by the repository layer.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
