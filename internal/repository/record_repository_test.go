package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/datavue/internal/model"
)

func TestRecordInsertRequiresFields(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "empty", admin)

	_, err := NewRecordRepo(db).Insert(context.Background(), typeID, model.Record{}, admin)
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestRecordInsertRejectsUnknownField(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "cities", admin)
	seedField(t, db, typeID, "name", model.KindText)

	_, err := NewRecordRepo(db).Insert(context.Background(), typeID,
		model.Record{"name": "x", "surprise": 1}, admin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surprise")
}

func TestRecordCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "cities", admin)
	seedField(t, db, typeID, "name", model.KindText)
	seedField(t, db, typeID, "population", model.KindInteger)

	records := NewRecordRepo(db)
	id, err := records.Insert(ctx, typeID, model.Record{"name": "Springfield", "population": int64(30000)}, admin)
	require.NoError(t, err)

	rec, err := records.Get(ctx, typeID, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec[model.ColID])
	assert.Equal(t, admin, rec[model.ColCreatedBy])
	assert.NotEmpty(t, rec[model.ColCreatedAt])

	require.NoError(t, records.Update(ctx, typeID, id, model.Record{"population": int64(40000)}))
	rec, err = records.Get(ctx, typeID, id)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), rec["population"])
	assert.Equal(t, "Springfield", rec["name"], "untouched field keeps its value")

	require.NoError(t, records.Delete(ctx, typeID, id))
	_, err = records.Get(ctx, typeID, id)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, records.Delete(ctx, typeID, id), ErrRecordNotFound)
}

func TestRecordUpdateGuards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "cities", admin)
	seedField(t, db, typeID, "name", model.KindText)

	records := NewRecordRepo(db)
	id, err := records.Insert(ctx, typeID, model.Record{"name": "Springfield"}, admin)
	require.NoError(t, err)

	// a payload of only system columns has nothing to update
	err = records.Update(ctx, typeID, id, model.Record{model.ColCreatedBy: int64(99)})
	assert.ErrorIs(t, err, ErrNoUpdatableFields)

	// system columns mixed into a valid payload are ignored, not applied
	require.NoError(t, records.Update(ctx, typeID, id,
		model.Record{"name": "Shelbyville", model.ColCreatedBy: int64(99)}))
	rec, err := records.Get(ctx, typeID, id)
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", rec["name"])
	assert.Equal(t, admin, rec[model.ColCreatedBy])

	err = records.Update(ctx, typeID, id+42, model.Record{"name": "x"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordListOrderAndCreator(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "cities", admin)
	seedField(t, db, typeID, "name", model.KindText)

	records := NewRecordRepo(db)
	_, err := records.Insert(ctx, typeID,
		model.Record{"name": "old", model.ColCreatedAt: "2020-01-01 00:00:00"}, admin)
	require.NoError(t, err)
	_, err = records.Insert(ctx, typeID,
		model.Record{"name": "new", model.ColCreatedAt: "2023-01-01 00:00:00"}, admin)
	require.NoError(t, err)

	list, err := records.List(ctx, typeID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0]["name"], "newest first")
	assert.Equal(t, "admin", list[0]["created_by_username"])

	limited, err := records.List(ctx, typeID, 1, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "old", limited[0]["name"])
}

func TestRecordListEmptyType(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "cities", admin)
	seedField(t, db, typeID, "name", model.KindText)

	list, err := NewRecordRepo(db).List(context.Background(), typeID, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRecordCoordinates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "landmarks", admin)
	seedField(t, db, typeID, "name", model.KindText)
	seedField(t, db, typeID, "location", model.KindCoordinates)

	records := NewRecordRepo(db)
	id, err := records.Insert(ctx, typeID, model.Record{
		"name":     "Old State House",
		"location": map[string]any{"latitude": 42.3587, "longitude": -71.0576},
	}, admin)
	require.NoError(t, err)

	rec, err := records.Get(ctx, typeID, id)
	require.NoError(t, err)
	coords, ok := rec["location"].(model.Coordinates)
	require.True(t, ok, "coordinates decode to their structured form, got %T", rec["location"])
	assert.InDelta(t, 42.3587, coords.Latitude, 1e-9)
	assert.InDelta(t, -71.0576, coords.Longitude, 1e-9)

	// out-of-range values are rejected on insert and update alike
	_, err = records.Insert(ctx, typeID, model.Record{
		"location": map[string]any{"latitude": 91.0, "longitude": 0.0},
	}, admin)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	err = records.Update(ctx, typeID, id, model.Record{
		"location": map[string]any{"latitude": 0.0, "longitude": -181.0},
	})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	// the accepted row is untouched by the failed update
	rec, err = records.Get(ctx, typeID, id)
	require.NoError(t, err)
	assert.Equal(t, coords, rec["location"])
}

func TestRecordStatistics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "measurements", admin)
	seedField(t, db, typeID, "label", model.KindText)
	seedField(t, db, typeID, "value", model.KindDecimal)
	seedField(t, db, typeID, "count", model.KindInteger)
	seedField(t, db, typeID, "unused", model.KindDecimal)

	records := NewRecordRepo(db)
	for _, v := range []float64{1, 2, 3, 4} {
		_, err := records.Insert(ctx, typeID, model.Record{"label": "m", "value": v, "count": int64(v * 10)}, admin)
		require.NoError(t, err)
	}
	_, err := records.Insert(ctx, typeID, model.Record{"label": "no value"}, admin)
	require.NoError(t, err)

	stats, err := records.Statistics(ctx, typeID)
	require.NoError(t, err)

	v := stats["value"]
	assert.Equal(t, int64(4), v.Count, "NULLs do not count")
	assert.InDelta(t, 2.5, v.Mean, 1e-9)
	assert.InDelta(t, 1.0, v.Min, 1e-9)
	assert.InDelta(t, 4.0, v.Max, 1e-9)

	c := stats["count"]
	assert.Equal(t, int64(4), c.Count)
	assert.InDelta(t, 25.0, c.Mean, 1e-9)

	_, hasLabel := stats["label"]
	assert.False(t, hasLabel, "text fields are not aggregated")
	_, hasUnused := stats["unused"]
	assert.False(t, hasUnused, "fields with no values are omitted")
}
