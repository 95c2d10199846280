// This file implements typed CRUD against a data type's physical
// table. Column names never come from the caller unchecked: every
// payload key is matched against the catalog's field list before it is
// used in SQL, and coordinates values are validated and serialized here
// so the storage layer only ever sees their text form.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/utils"
)

// FieldStats is the aggregate of one numeric field: count of non-NULL
// values with their mean, minimum and maximum.
type FieldStats struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// RecordRepo performs CRUD on the physical tables of data types.
type RecordRepo struct {
	db    *sql.DB
	retry *retrier
}

// NewRecordRepo constructs a RecordRepo with the given DB handle.
func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db, retry: newRetrier()}
}

// Insert adds a record to the type's table and returns its id. Fails
// with ErrNoFields while the type has no field definitions and with
// ErrInvalidCoordinate for out-of-range coordinate values. The
// created_by and created_at system columns are populated automatically
// unless the caller supplied them (the demo loader does, to keep
// original timestamps).
func (r *RecordRepo) Insert(ctx context.Context, typeID int64, values model.Record, createdBy int64) (int64, error) {
	fields, err := fieldsForType(ctx, r.db, typeID)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, ErrNoFields
	}

	encoded, err := encodeValues(fields, values, true)
	if err != nil {
		return 0, err
	}
	if _, ok := encoded[model.ColCreatedBy]; !ok {
		encoded[model.ColCreatedBy] = createdBy
	}
	if _, ok := encoded[model.ColCreatedAt]; !ok {
		encoded[model.ColCreatedAt] = utils.NowDB()
	}

	columns := make([]string, 0, len(encoded))
	args := make([]any, 0, len(encoded))
	for col, v := range encoded {
		columns = append(columns, col)
		args = append(args, v)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	var id int64
	err = r.retry.do(func() error {
		res, err := r.db.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				dataTableName(typeID), strings.Join(columns, ", "), placeholders),
			args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get retrieves one record by id, with coordinates decoded back to
// their structured form and created_at reformatted for interchange.
// Returns ErrRecordNotFound when absent (or when the physical table
// itself is missing).
func (r *RecordRepo) Get(ctx context.Context, typeID, recordID int64) (model.Record, error) {
	exists, err := tableExists(ctx, r.db, dataTableName(typeID))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRecordNotFound
	}

	fields, err := fieldsForType(ctx, r.db, typeID)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s WHERE id = ?", dataTableName(typeID)), recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows, fields)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrRecordNotFound
	}
	return records[0], nil
}

// List returns records ordered by creation time descending, left-joined
// with the creator's identity. limit 0 means unbounded.
func (r *RecordRepo) List(ctx context.Context, typeID int64, limit, offset int) ([]model.Record, error) {
	table := dataTableName(typeID)
	exists, err := tableExists(ctx, r.db, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []model.Record{}, nil
	}

	fields, err := fieldsForType(ctx, r.db, typeID)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT d.*, u.username AS created_by_username, u.full_name AS created_by_full_name
		FROM %s d
		LEFT JOIN users u ON d.created_by = u.id
		ORDER BY d.created_at DESC`, table)
	var rows *sql.Rows
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, q+` LIMIT ? OFFSET ?`, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows, fields)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}

// Update changes field values of an existing record. System columns in
// the payload are silently ignored; a payload reduced to nothing yields
// ErrNoUpdatableFields. Coordinates are re-validated and re-encoded
// exactly as on insert. Returns ErrRecordNotFound when the id is absent.
func (r *RecordRepo) Update(ctx context.Context, typeID, recordID int64, values model.Record) error {
	fields, err := fieldsForType(ctx, r.db, typeID)
	if err != nil {
		return err
	}

	updatable := make(model.Record, len(values))
	for k, v := range values {
		if model.IsSystemColumn(k) {
			continue
		}
		updatable[k] = v
	}
	if len(updatable) == 0 {
		return ErrNoUpdatableFields
	}
	encoded, err := encodeValues(fields, updatable, false)
	if err != nil {
		return err
	}

	assignments := make([]string, 0, len(encoded))
	args := make([]any, 0, len(encoded)+1)
	for col, v := range encoded {
		assignments = append(assignments, col+" = ?")
		args = append(args, v)
	}
	args = append(args, recordID)

	return r.retry.do(func() error {
		table := dataTableName(typeID)
		var exists int64
		err := r.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT id FROM %s WHERE id = ?", table), recordID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(assignments, ", ")),
			args...)
		return err
	})
}

// Delete removes a record. Returns ErrRecordNotFound when absent.
func (r *RecordRepo) Delete(ctx context.Context, typeID, recordID int64) error {
	return r.retry.do(func() error {
		table := dataTableName(typeID)
		var exists int64
		err := r.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT id FROM %s WHERE id = ?", table), recordID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		_, err = r.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), recordID)
		return err
	})
}

// Statistics aggregates every numeric field (integer, decimal) of the
// type: count, mean, min and max over non-NULL values. Fields with no
// values are omitted from the result.
func (r *RecordRepo) Statistics(ctx context.Context, typeID int64) (map[string]FieldStats, error) {
	fields, err := fieldsForType(ctx, r.db, typeID)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]FieldStats)
	table := dataTableName(typeID)
	for _, f := range fields {
		if !f.FieldType.Numeric() {
			continue
		}
		var s FieldStats
		var mean, min, max sql.NullFloat64
		q := fmt.Sprintf(
			`SELECT COUNT(*), AVG(%[1]s), MIN(%[1]s), MAX(%[1]s) FROM %[2]s WHERE %[1]s IS NOT NULL`,
			f.FieldName, table)
		if err := r.db.QueryRowContext(ctx, q).Scan(&s.Count, &mean, &min, &max); err != nil {
			return nil, err
		}
		if s.Count == 0 {
			continue
		}
		s.Mean, s.Min, s.Max = mean.Float64, min.Float64, max.Float64
		stats[f.FieldName] = s
	}
	return stats, nil
}

// encodeValues validates a payload against the field catalog and
// returns it with coordinates serialized for storage. Unknown keys are
// rejected so arbitrary column names can never reach SQL. System
// columns pass through only when allowSystem is set (insert path).
func encodeValues(fields []model.DataField, values model.Record, allowSystem bool) (model.Record, error) {
	byName := make(map[string]model.DataField, len(fields))
	for _, f := range fields {
		byName[f.FieldName] = f
	}

	encoded := make(model.Record, len(values))
	for k, v := range values {
		if model.IsSystemColumn(k) {
			if allowSystem {
				encoded[k] = v
			}
			continue
		}
		f, ok := byName[k]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", k)
		}
		if f.FieldType == model.KindCoordinates && v != nil {
			coords, err := model.CoordinatesFrom(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
			}
			if !coords.InRange() {
				return nil, fmt.Errorf("%w: latitude %v, longitude %v",
					ErrInvalidCoordinate, coords.Latitude, coords.Longitude)
			}
			encoded[k] = coords.Encode()
			continue
		}
		encoded[k] = v
	}
	return encoded, nil
}

// scanRecords turns a result set into Records, normalizing driver
// values ([]byte to string, time.Time back to the persisted layout),
// reformating created_at to the interchange form and decoding
// coordinates fields to their structured shape.
func scanRecords(rows *sql.Rows, fields []model.DataField) ([]model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	coordFields := make(map[string]bool)
	for _, f := range fields {
		if f.FieldType == model.KindCoordinates {
			coordFields[f.FieldName] = true
		}
	}

	var records []model.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(model.Record, len(cols))
		for i, col := range cols {
			v := values[i]
			switch t := v.(type) {
			case []byte:
				v = string(t)
			case time.Time:
				v = t.Format(utils.DBTimeLayout)
			}
			if col == model.ColCreatedAt {
				if s, ok := v.(string); ok {
					v = utils.FormatTimestamp(s)
				}
			}
			if coordFields[col] && v != nil {
				if s, ok := v.(string); ok && s != "" {
					if coords, err := model.DecodeCoordinates(s); err == nil {
						v = coords
					}
					// undecodable text is surfaced as stored
				}
			}
			rec[col] = v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
