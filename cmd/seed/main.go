// Command seed loads the Boston Housing dataset into the database as a
// demo data type. Running it again replaces the previously loaded
// records instead of duplicating them.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/datavue/internal/config"
	"github.com/iliyamo/datavue/internal/database"
	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/repository"
)

const (
	datasetName = "Boston Housing Dataset"
	datasetDesc = "Classic machine learning dataset describing Boston real estate"
)

// seedField describes one column of the demo dataset.
type seedField struct {
	name string
	kind model.FieldKind
	desc string
}

var bostonFields = []seedField{
	{"crim", model.KindDecimal, "Per-capita crime rate by town"},
	{"zn", model.KindDecimal, "Share of residential land zoned for lots over 25,000 sq.ft."},
	{"indus", model.KindDecimal, "Share of non-retail business acres per town"},
	{"chas", model.KindInteger, "Charles River dummy (1 if tract bounds river)"},
	{"nox", model.KindDecimal, "Nitric oxide concentration (parts per 10 million)"},
	{"rm", model.KindDecimal, "Average number of rooms per dwelling"},
	{"age", model.KindDecimal, "Share of owner-occupied units built before 1940"},
	{"dis", model.KindDecimal, "Weighted distance to five Boston employment centres"},
	{"rad", model.KindInteger, "Accessibility index to radial highways"},
	{"tax", model.KindDecimal, "Property tax rate per $10,000"},
	{"ptratio", model.KindDecimal, "Pupil-teacher ratio by town"},
	{"b", model.KindDecimal, "1000(Bk - 0.63)^2 where Bk is the Black population share"},
	{"lstat", model.KindDecimal, "Share of the population with lower status"},
	{"medv", model.KindDecimal, "Median value of owner-occupied homes in $1000s"},
}

func main() {
	cfg := config.LoadTool()

	csvPath := flag.String("csv", "boston_housing.csv", "path to the BostonHousing CSV file")
	dbPath := flag.String("db", cfg.DBPath, "path to the SQLite database file")
	flag.Parse()

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := database.InitSchema(ctx, db); err != nil {
		log.Fatalf("init schema: %v", err)
	}
	if err := database.EnsureDefaultAdmin(ctx, db, cfg.AdminUsername, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		log.Fatalf("ensure default admin: %v", err)
	}

	users := repository.NewUserRepo(db)
	admin, err := users.GetByUsername(ctx, cfg.AdminUsername)
	if err != nil {
		log.Fatalf("load admin user: %v", err)
	}

	types := repository.NewDataTypeRepo(db)
	fields := repository.NewFieldRepo(db)
	records := repository.NewRecordRepo(db)

	typeID, err := ensureDataset(ctx, admin.ID, types, fields, records)
	if err != nil {
		log.Fatalf("prepare dataset: %v", err)
	}

	n, err := loadCSV(ctx, *csvPath, typeID, admin.ID, records)
	if err != nil {
		log.Fatalf("load csv: %v", err)
	}
	fmt.Printf("loaded %d records into %q (type %d)\n", n, datasetName, typeID)
}

// ensureDataset finds or creates the demo data type. An existing
// dataset keeps its schema but is emptied so the load replaces prior
// rows.
func ensureDataset(ctx context.Context, adminID int64, types *repository.DataTypeRepo,
	fields *repository.FieldRepo, records *repository.RecordRepo) (int64, error) {
	typeID, err := types.Create(ctx, datasetName, datasetDesc, adminID)
	if err == nil {
		for _, f := range bostonFields {
			df := model.DataField{
				DataTypeID:  typeID,
				FieldName:   f.name,
				FieldType:   f.kind,
				IsRequired:  true,
				Description: f.desc,
			}
			if err := fields.Add(ctx, &df); err != nil {
				return 0, fmt.Errorf("add field %s: %w", f.name, err)
			}
		}
		return typeID, nil
	}
	if !errors.Is(err, repository.ErrDuplicateName) {
		return 0, err
	}

	existing, err := types.List(ctx, adminID)
	if err != nil {
		return 0, err
	}
	for _, dt := range existing {
		if dt.Name != datasetName {
			continue
		}
		log.Printf("dataset already exists (type %d), replacing its records", dt.ID)
		old, err := records.List(ctx, dt.ID, 0, 0)
		if err != nil {
			return 0, err
		}
		for _, rec := range old {
			id, ok := rec[model.ColID].(int64)
			if !ok {
				continue
			}
			if err := records.Delete(ctx, dt.ID, id); err != nil {
				return 0, err
			}
		}
		return dt.ID, nil
	}
	return 0, fmt.Errorf("dataset %q exists but was not found in the catalog", datasetName)
}

func loadCSV(ctx context.Context, path string, typeID, adminID int64, records *repository.RecordRepo) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\uFEFF")))
	}

	kinds := make(map[string]model.FieldKind, len(bostonFields))
	for _, fld := range bostonFields {
		kinds[fld.name] = fld.kind
	}

	count := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}

		rec := model.Record{}
		for i, col := range header {
			kind, ok := kinds[col]
			if !ok || i >= len(row) {
				continue
			}
			val := strings.TrimSpace(row[i])
			if val == "" {
				rec[col] = nil
				continue
			}
			switch kind {
			case model.KindInteger:
				// some distributions store integers as "1.0"
				fv, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return count, fmt.Errorf("row %d: column %s: %w", count+1, col, err)
				}
				rec[col] = int64(fv)
			default:
				fv, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return count, fmt.Errorf("row %d: column %s: %w", count+1, col, err)
				}
				rec[col] = fv
			}
		}

		if _, err := records.Insert(ctx, typeID, rec, adminID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
