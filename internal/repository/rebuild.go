// Physical table rebuild. SQLite cannot drop columns on old versions
// and ALTER TABLE grows hairy once column types change, so the table
// manager evolves a type's storage the blunt way: read every row under
// the old schema, drop the table, recreate it from the current field
// list and reinsert the rows. Row ids are preserved exactly; columns
// present in both schemas keep their values (including NULL), new
// columns start as NULL, removed columns drop their data. The caller
// supplies the transaction, which makes the whole dance atomic: readers
// see the pre-rebuild or post-rebuild table, never a partial one.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/utils"
)

// rebuildDataTable regenerates data_{typeID} to match the current field
// definitions, reprojecting any existing rows. If no table exists yet
// it skips preservation and goes straight to creation.
func rebuildDataTable(ctx context.Context, tx *sql.Tx, typeID int64) error {
	table := dataTableName(typeID)

	exists, err := tableExists(ctx, tx, table)
	if err != nil {
		return err
	}

	var oldRows []map[string]any
	if exists {
		if oldRows, err = readAllRows(ctx, tx, table); err != nil {
			return fmt.Errorf("rebuild %s: read old rows: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE `+table); err != nil {
			return fmt.Errorf("rebuild %s: drop: %w", table, err)
		}
	}

	fields, err := fieldsForType(ctx, tx, typeID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", table)
	b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	b.WriteString("\tcreated_by INTEGER,\n")
	b.WriteString("\tcreated_at TIMESTAMP,\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "\t%s %s,\n", f.FieldName, f.FieldType.SQLType())
	}
	b.WriteString("\tFOREIGN KEY (created_by) REFERENCES users (id)\n)")
	if _, err := tx.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("rebuild %s: create: %w", table, err)
	}

	if len(oldRows) == 0 {
		return nil
	}

	columns := []string{model.ColID, model.ColCreatedBy, model.ColCreatedAt}
	for _, f := range fields {
		columns = append(columns, f.FieldName)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders)

	for _, row := range oldRows {
		args := make([]any, 0, len(columns))
		for _, col := range columns {
			// Absent keys (freshly added fields) yield nil -> NULL.
			args = append(args, normalizeRebuildValue(row[col]))
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("rebuild %s: reinsert row: %w", table, err)
		}
	}
	return nil
}

func tableExists(ctx context.Context, q queryer, table string) (bool, error) {
	var name string
	err := q.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// readAllRows snapshots every row of the table under its current schema.
func readAllRows(ctx context.Context, tx *sql.Tx, table string) ([]map[string]any, error) {
	rows, err := tx.QueryContext(ctx, `SELECT * FROM `+table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeRebuildValue keeps reprojected values byte-stable. The
// driver surfaces TIMESTAMP columns as time.Time and TEXT as []byte;
// binding those back verbatim would re-encode timestamps in the
// driver's own layout, so they are rendered back into the persisted
// "YYYY-MM-DD HH:MM:SS" form first.
func normalizeRebuildValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(utils.DBTimeLayout)
	case []byte:
		return string(t)
	default:
		return v
	}
}
