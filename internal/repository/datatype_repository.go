// Package repository contains data access logic for the dynamic
// reference-table catalog. This file manages data type definitions and
// the lifecycle of their physical storage tables. Each data type owns
// exactly one table named data_{id}; the table exists from the moment
// the type is created, initially with system columns only.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/utils"
)

// DataTypeRepo manages persistence for data type definitions.
type DataTypeRepo struct {
	db    *sql.DB
	retry *retrier
}

// NewDataTypeRepo constructs a DataTypeRepo with the given DB handle.
func NewDataTypeRepo(db *sql.DB) *DataTypeRepo {
	return &DataTypeRepo{db: db, retry: newRetrier()}
}

// dataTableName returns the deterministic physical table name for a
// data type. The id is numeric so the name is safe to interpolate.
func dataTableName(typeID int64) string {
	return fmt.Sprintf("data_%d", typeID)
}

// Create inserts a new data type and creates its empty physical table
// (system columns only) in the same transaction. Returns
// ErrDuplicateName if the name is already taken.
func (r *DataTypeRepo) Create(ctx context.Context, name, description string, createdBy int64) (int64, error) {
	var id int64
	err := r.retry.do(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx,
			`INSERT INTO data_types (name, description, created_by, created_at) VALUES (?, ?, ?, ?)`,
			name, description, createdBy, utils.NowDB())
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateName
			}
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}

		create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_by INTEGER,
			created_at TIMESTAMP,
			FOREIGN KEY (created_by) REFERENCES users (id)
		)`, dataTableName(id))
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get retrieves a data type by id. Returns ErrTypeNotFound when absent.
func (r *DataTypeRepo) Get(ctx context.Context, id int64) (*model.DataType, error) {
	var dt model.DataType
	var description sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_by, created_at FROM data_types WHERE id = ?`,
		id).Scan(&dt.ID, &dt.Name, &description, &dt.CreatedBy, &dt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, err
	}
	dt.Description = description.String
	dt.CreatedAt = utils.FormatTimestamp(dt.CreatedAt)
	return &dt, nil
}

// List returns all data types, newest first, joined with the creator's
// username. CanEdit is computed for the requesting user: admins can
// edit everything, other users only types with an explicit write grant.
func (r *DataTypeRepo) List(ctx context.Context, userID int64) ([]model.DataType, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dt.id, dt.name, dt.description, dt.created_by, dt.created_at, u.username
		FROM data_types dt
		JOIN users u ON dt.created_by = u.id
		ORDER BY dt.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []model.DataType
	for rows.Next() {
		var dt model.DataType
		var description sql.NullString
		if err := rows.Scan(&dt.ID, &dt.Name, &description, &dt.CreatedBy, &dt.CreatedAt, &dt.CreatedByUsername); err != nil {
			return nil, err
		}
		dt.Description = description.String
		dt.CreatedAt = utils.FormatTimestamp(dt.CreatedAt)
		types = append(types, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	writable, err := r.writableTypeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	var isAdmin bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT role = 'admin' FROM users WHERE id = ?`, userID).Scan(&isAdmin); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	for i := range types {
		types[i].CanEdit = isAdmin || writable[types[i].ID]
	}
	return types, nil
}

func (r *DataTypeRepo) writableTypeIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT data_type_id FROM user_permissions WHERE user_id = ? AND permission_type = 'write'`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// HasFields reports whether the data type has at least one field
// definition. Records cannot be inserted while this is false.
func (r *DataTypeRepo) HasFields(ctx context.Context, typeID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM data_fields WHERE data_type_id = ?`, typeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete irreversibly removes a data type: its physical table, field
// definitions (with their enum values), permission grants and finally
// the definition row itself, all in one transaction. Returns
// ErrTypeNotFound when the type does not exist.
func (r *DataTypeRepo) Delete(ctx context.Context, typeID int64) error {
	return r.retry.do(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var name string
		err = tx.QueryRowContext(ctx, `SELECT name FROM data_types WHERE id = ?`, typeID).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTypeNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, dataTableName(typeID))); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM enum_field_values WHERE field_id IN
			  (SELECT id FROM data_fields WHERE data_type_id = ?)`, typeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM data_fields WHERE data_type_id = ?`, typeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_permissions WHERE data_type_id = ?`, typeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM data_types WHERE id = ?`, typeID); err != nil {
			return err
		}
		return tx.Commit()
	})
}
