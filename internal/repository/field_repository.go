// This file manages field definitions and their enum value lists. Field
// mutations are the operations that trigger a physical table rebuild
// (see rebuild.go); both run inside one transaction so a crash can
// never leave the catalog and the data table disagreeing.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/utils"
)

// queryer abstracts *sql.DB and *sql.Tx so field lookups can run either
// standalone or as part of a rebuild transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Field names become SQL column identifiers, so they are restricted to
// the usual identifier alphabet and must not shadow system columns.
var fieldNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validFieldName(name string) bool {
	return fieldNameRe.MatchString(name) && !model.IsSystemColumn(strings.ToLower(name))
}

// FieldRepo manages field definitions of data types.
type FieldRepo struct {
	db    *sql.DB
	retry *retrier
}

// NewFieldRepo constructs a FieldRepo with the given DB handle.
func NewFieldRepo(db *sql.DB) *FieldRepo {
	return &FieldRepo{db: db, retry: newRetrier()}
}

// Add inserts a field definition and rebuilds the type's physical table
// to include the new column. Existing rows keep their data; the new
// column is NULL for them. Returns ErrTypeNotFound, ErrInvalidFieldName
// or ErrDuplicateField on validation failures.
func (r *FieldRepo) Add(ctx context.Context, f *model.DataField) error {
	if !f.FieldType.Valid() {
		return errors.New("unsupported field type: " + string(f.FieldType))
	}
	if !validFieldName(f.FieldName) {
		return ErrInvalidFieldName
	}
	return r.retry.do(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var exists int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM data_types WHERE id = ?`, f.DataTypeID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTypeNotFound
		}
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			`SELECT id FROM data_fields WHERE data_type_id = ? AND field_name = ?`,
			f.DataTypeID, f.FieldName).Scan(&exists)
		if err == nil {
			return ErrDuplicateField
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		f.CreatedAt = utils.NowDB()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO data_fields (data_type_id, field_name, field_type, is_required, description, validation_rules, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.DataTypeID, f.FieldName, string(f.FieldType), f.IsRequired, f.Description, f.ValidationRules, f.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateField
			}
			return err
		}
		if f.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		if len(f.EnumValues) > 0 && f.FieldType == model.KindEnum {
			if err := replaceEnumValues(ctx, tx, f.ID, f.EnumValues); err != nil {
				return err
			}
		}

		if err := rebuildDataTable(ctx, tx, f.DataTypeID); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Remove deletes a field definition (cascading its enum values) and
// rebuilds the physical table without the column, dropping its data.
// Returns ErrFieldNotFound when the field is not on this type.
func (r *FieldRepo) Remove(ctx context.Context, typeID, fieldID int64) error {
	return r.retry.do(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var kind string
		err = tx.QueryRowContext(ctx,
			`SELECT field_type FROM data_fields WHERE id = ? AND data_type_id = ?`,
			fieldID, typeID).Scan(&kind)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFieldNotFound
		}
		if err != nil {
			return err
		}

		if model.FieldKind(kind) == model.KindEnum {
			if _, err := tx.ExecContext(ctx, `DELETE FROM enum_field_values WHERE field_id = ?`, fieldID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM data_fields WHERE id = ? AND data_type_id = ?`, fieldID, typeID); err != nil {
			return err
		}

		if err := rebuildDataTable(ctx, tx, typeID); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// ListByType returns the field definitions of a data type in creation
// order, with enum value lists resolved for enum fields.
func (r *FieldRepo) ListByType(ctx context.Context, typeID int64) ([]model.DataField, error) {
	fields, err := fieldsForType(ctx, r.db, typeID)
	if err != nil {
		return nil, err
	}
	for i := range fields {
		if fields[i].FieldType != model.KindEnum {
			continue
		}
		values, err := enumValues(ctx, r.db, fields[i].ID)
		if err != nil {
			return nil, err
		}
		fields[i].EnumValues = values
	}
	return fields, nil
}

// SetEnumValues replaces the closed value list of an enum field. Blank
// values are skipped; display order follows slice position. Returns
// ErrFieldNotFound if the field does not exist or is not an enum.
func (r *FieldRepo) SetEnumValues(ctx context.Context, fieldID int64, values []string) error {
	return r.retry.do(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var kind string
		err = tx.QueryRowContext(ctx, `SELECT field_type FROM data_fields WHERE id = ?`, fieldID).Scan(&kind)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && model.FieldKind(kind) != model.KindEnum) {
			return ErrFieldNotFound
		}
		if err != nil {
			return err
		}
		if err := replaceEnumValues(ctx, tx, fieldID, values); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// EnumValues returns the ordered value list of an enum field.
func (r *FieldRepo) EnumValues(ctx context.Context, fieldID int64) ([]string, error) {
	return enumValues(ctx, r.db, fieldID)
}

func replaceEnumValues(ctx context.Context, tx *sql.Tx, fieldID int64, values []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM enum_field_values WHERE field_id = ?`, fieldID); err != nil {
		return err
	}
	now := utils.NowDB()
	order := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO enum_field_values (field_id, value, display_order, created_at) VALUES (?, ?, ?, ?)`,
			fieldID, v, order, now); err != nil {
			if isUniqueViolation(err) {
				continue // duplicate entries in the input collapse to one row
			}
			return err
		}
		order++
	}
	return nil
}

func enumValues(ctx context.Context, q queryer, fieldID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT value FROM enum_field_values WHERE field_id = ? ORDER BY display_order, value`, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// fieldsForType loads the field definitions of a type in id order. It
// accepts a queryer so rebuilds can call it mid-transaction.
func fieldsForType(ctx context.Context, q queryer, typeID int64) ([]model.DataField, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, data_type_id, field_name, field_type, is_required, description, validation_rules, created_at
		 FROM data_fields WHERE data_type_id = ? ORDER BY id`, typeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []model.DataField
	for rows.Next() {
		var f model.DataField
		var kind string
		var description, rules sql.NullString
		if err := rows.Scan(&f.ID, &f.DataTypeID, &f.FieldName, &kind, &f.IsRequired, &description, &rules, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.FieldType = model.FieldKind(kind)
		f.Description = description.String
		f.ValidationRules = rules.String
		fields = append(fields, f)
	}
	return fields, rows.Err()
}
