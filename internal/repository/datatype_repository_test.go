package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/datavue/internal/model"
)

func TestDataTypeCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)

	types := NewDataTypeRepo(db)
	id, err := types.Create(ctx, "cities", "reference cities", admin)
	require.NoError(t, err)

	dt, err := types.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cities", dt.Name)
	assert.Equal(t, admin, dt.CreatedBy)

	// the bare physical table exists even before any field is added
	var name string
	require.NoError(t, db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`,
		dataTableName(id)).Scan(&name))

	_, err = types.Create(ctx, "cities", "twice", admin)
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = types.Get(ctx, id+99)
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestDataTypeListCanEdit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	alice := seedUser(t, db, "alice", model.RoleUser)
	cities := seedType(t, db, "cities", admin)
	seedType(t, db, "streets", admin)

	require.NoError(t, NewPermissionRepo(db).Grant(ctx, alice, cities, model.PermWrite, admin))

	types := NewDataTypeRepo(db)

	forAlice, err := types.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, forAlice, 2, "every user sees every type")
	byName := make(map[string]model.DataType)
	for _, dt := range forAlice {
		byName[dt.Name] = dt
	}
	assert.True(t, byName["cities"].CanEdit, "write grant enables editing")
	assert.False(t, byName["streets"].CanEdit)
	assert.Equal(t, "admin", byName["cities"].CreatedByUsername)

	forAdmin, err := types.List(ctx, admin)
	require.NoError(t, err)
	for _, dt := range forAdmin {
		assert.True(t, dt.CanEdit, "admins edit everything")
	}
}

func TestDataTypeHasFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	typeID := seedType(t, db, "cities", admin)

	types := NewDataTypeRepo(db)
	has, err := types.HasFields(ctx, typeID)
	require.NoError(t, err)
	assert.False(t, has)

	seedField(t, db, typeID, "name", model.KindText)
	has, err = types.HasFields(ctx, typeID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDataTypeDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	alice := seedUser(t, db, "alice", model.RoleUser)
	typeID := seedType(t, db, "assets", admin)

	fields := NewFieldRepo(db)
	enumField := model.DataField{
		DataTypeID: typeID,
		FieldName:  "condition",
		FieldType:  model.KindEnum,
		EnumValues: []string{"new", "used"},
	}
	require.NoError(t, fields.Add(ctx, &enumField))
	require.NoError(t, NewPermissionRepo(db).Grant(ctx, alice, typeID, model.PermWrite, admin))
	_, err := NewRecordRepo(db).Insert(ctx, typeID, model.Record{"condition": "new"}, admin)
	require.NoError(t, err)

	types := NewDataTypeRepo(db)
	require.NoError(t, types.Delete(ctx, typeID))

	_, err = types.Get(ctx, typeID)
	assert.ErrorIs(t, err, ErrTypeNotFound)

	for _, q := range map[string]string{
		"fields":      `SELECT COUNT(*) FROM data_fields WHERE data_type_id = ?`,
		"permissions": `SELECT COUNT(*) FROM user_permissions WHERE data_type_id = ?`,
	} {
		var count int
		require.NoError(t, db.QueryRow(q, typeID).Scan(&count))
		assert.Zero(t, count)
	}
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM enum_field_values WHERE field_id = ?`,
		enumField.ID).Scan(&count))
	assert.Zero(t, count)

	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`,
		dataTableName(typeID)).Scan(new(string))
	assert.Error(t, err, "physical table must be dropped")

	assert.ErrorIs(t, types.Delete(ctx, typeID), ErrTypeNotFound)
}
