package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/datavue/internal/database"
	"github.com/iliyamo/datavue/internal/model"
)

// newTestDB opens a throwaway SQLite database with the full catalog
// schema applied.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.InitSchema(context.Background(), db))
	return db
}

// seedUser inserts a user row directly and returns its id. Password is
// always "secret".
func seedUser(t *testing.T, db *sql.DB, username, role string) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	res, err := db.Exec(
		`INSERT INTO users (username, password_hash, full_name, role, is_active, created_at)
		 VALUES (?, ?, ?, ?, 1, '2024-01-01 00:00:00')`,
		username, string(hash), username+" test", role)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// seedType creates a data type (with its bare physical table) owned by
// the given user.
func seedType(t *testing.T, db *sql.DB, name string, createdBy int64) int64 {
	t.Helper()
	id, err := NewDataTypeRepo(db).Create(context.Background(), name, "test type", createdBy)
	require.NoError(t, err)
	return id
}

// seedField adds a field through the repository so the physical table
// is rebuilt the same way production does it.
func seedField(t *testing.T, db *sql.DB, typeID int64, name string, kind model.FieldKind) int64 {
	t.Helper()
	f := model.DataField{DataTypeID: typeID, FieldName: name, FieldType: kind}
	require.NoError(t, NewFieldRepo(db).Add(context.Background(), &f))
	return f.ID
}
