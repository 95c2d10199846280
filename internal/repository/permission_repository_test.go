package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/datavue/internal/model"
)

func TestPermissionPolicy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	alice := seedUser(t, db, "alice", model.RoleUser)
	typeID := seedType(t, db, "cities", admin)

	perms := NewPermissionRepo(db)

	// read is open to every authenticated user, no grant needed
	assert.NoError(t, perms.Require(ctx, alice, typeID, model.PermRead))

	// write needs an explicit grant
	assert.ErrorIs(t, perms.Require(ctx, alice, typeID, model.PermWrite), ErrPermissionDenied)
	require.NoError(t, perms.Grant(ctx, alice, typeID, model.PermWrite, admin))
	assert.NoError(t, perms.Require(ctx, alice, typeID, model.PermWrite))

	// a write grant never covers admin-level operations
	assert.ErrorIs(t, perms.Require(ctx, alice, typeID, model.PermAdmin), ErrPermissionDenied)

	// the admin role passes every check without any grant row
	for _, kind := range []model.PermissionKind{model.PermRead, model.PermWrite, model.PermAdmin} {
		assert.NoError(t, perms.Require(ctx, admin, typeID, kind))
	}

	// even an "admin" grant row does not elevate a regular user
	require.NoError(t, perms.Grant(ctx, alice, typeID, model.PermAdmin, admin))
	assert.ErrorIs(t, perms.Require(ctx, alice, typeID, model.PermAdmin), ErrPermissionDenied)

	// unknown users have no access beyond the open read policy
	ok, err := perms.HasPermission(ctx, 9999, typeID, model.PermWrite)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionGrantReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	other := seedUser(t, db, "other", model.RoleAdmin)
	alice := seedUser(t, db, "alice", model.RoleUser)
	typeID := seedType(t, db, "cities", admin)

	perms := NewPermissionRepo(db)
	require.NoError(t, perms.Grant(ctx, alice, typeID, model.PermRead, admin))
	require.NoError(t, perms.Grant(ctx, alice, typeID, model.PermWrite, other))

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM user_permissions WHERE user_id = ? AND data_type_id = ?`,
		alice, typeID).Scan(&count))
	assert.Equal(t, 1, count, "granting again replaces the row")

	listed, err := perms.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, model.PermWrite, listed[0].Kind)
	assert.Equal(t, other, listed[0].GrantedBy, "latest granter wins")
}

func TestPermissionRevoke(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	alice := seedUser(t, db, "alice", model.RoleUser)
	typeID := seedType(t, db, "cities", admin)

	perms := NewPermissionRepo(db)
	require.NoError(t, perms.Grant(ctx, alice, typeID, model.PermWrite, admin))
	require.NoError(t, perms.Revoke(ctx, alice, typeID))
	assert.ErrorIs(t, perms.Require(ctx, alice, typeID, model.PermWrite), ErrPermissionDenied)

	// revoking a non-existent grant is not an error
	assert.NoError(t, perms.Revoke(ctx, alice, typeID))
}

func TestIsAdmin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	alice := seedUser(t, db, "alice", model.RoleUser)

	perms := NewPermissionRepo(db)
	ok, err := perms.IsAdmin(ctx, admin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = perms.IsAdmin(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = perms.IsAdmin(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}
