package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Catalog DDL. Five fixed tables describe users, type definitions,
// field definitions, enum value lists and per-type permissions. The
// physical record tables (data_{id}) are created dynamically by the
// schema repository and are deliberately absent here.
var catalogDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		full_name TEXT,
		role TEXT NOT NULL CHECK (role IN ('admin', 'user')),
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS data_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		description TEXT,
		created_by INTEGER,
		created_at TIMESTAMP,
		FOREIGN KEY (created_by) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS data_fields (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data_type_id INTEGER NOT NULL,
		field_name TEXT NOT NULL,
		field_type TEXT NOT NULL CHECK (field_type IN
			('text', 'integer', 'decimal', 'date', 'boolean', 'enum', 'coordinates')),
		is_required BOOLEAN NOT NULL DEFAULT 0,
		description TEXT,
		validation_rules TEXT,
		created_at TIMESTAMP,
		FOREIGN KEY (data_type_id) REFERENCES data_types (id),
		UNIQUE (data_type_id, field_name)
	)`,
	`CREATE TABLE IF NOT EXISTS enum_field_values (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		field_id INTEGER NOT NULL,
		value TEXT NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP,
		FOREIGN KEY (field_id) REFERENCES data_fields (id) ON DELETE CASCADE,
		UNIQUE (field_id, value)
	)`,
	`CREATE TABLE IF NOT EXISTS user_permissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		data_type_id INTEGER NOT NULL,
		permission_type TEXT NOT NULL CHECK (permission_type IN ('read', 'write', 'admin')),
		granted_by INTEGER,
		granted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id),
		FOREIGN KEY (data_type_id) REFERENCES data_types (id),
		FOREIGN KEY (granted_by) REFERENCES users (id),
		UNIQUE (user_id, data_type_id)
	)`,
}

// InitSchema creates the catalog tables if they do not exist yet and
// ensures every registered data type has its physical table. Safe to
// call on every startup.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range catalogDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return createMissingDataTables(ctx, db)
}

// createMissingDataTables backfills a bare physical table for any type
// definition whose data_{id} table is absent (e.g. after a restore of
// the catalog without the data tables).
func createMissingDataTables(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT id FROM data_types`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`,
			fmt.Sprintf("data_%d", id)).Scan(&name)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return err
		}
		create := fmt.Sprintf(`CREATE TABLE data_%d (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_by INTEGER,
			created_at TIMESTAMP,
			FOREIGN KEY (created_by) REFERENCES users (id)
		)`, id)
		if _, err := db.ExecContext(ctx, create); err != nil {
			return err
		}
		log.Printf("created missing data table data_%d", id)
	}
	return nil
}

// EnsureDefaultAdmin creates the bootstrap admin account when no admin
// exists. The well-known default credentials are expected to be rotated
// by the setup flow; the chosen username/password pair is logged so the
// operator can complete first login.
func EnsureDefaultAdmin(ctx context.Context, db *sql.DB, username, password string, bcryptCost int) error {
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&count); err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, full_name, created_at)
		 VALUES (?, ?, 'admin', 'System administrator', ?)`,
		username, string(hash), now)
	if err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	log.Printf("created default admin user: %s", username)
	return nil
}
