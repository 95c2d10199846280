package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/datavue/internal/model"
)

func TestUserCreateAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)

	id, err := users.Create(ctx, "alice", "s3cret", "Alice A", model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)

	u, err := users.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, model.RoleUser, u.Role)

	_, err = users.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Create(ctx, "alice", "other", "", model.RoleUser, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrUsernameExists)

	// arbitrary role strings are coerced to the user role
	id2, err := users.Create(ctx, "bob", "pw", "", "superuser", bcrypt.MinCost)
	require.NoError(t, err)
	u, err = users.GetByID(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)
}

func TestUserAuthenticateInactive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)

	id, err := users.Create(ctx, "carol", "pw", "", model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Update(ctx, id, "", model.RoleUser, false))

	// deactivated accounts fail exactly like a wrong password
	_, err = users.Authenticate(ctx, "carol", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserLastAdminGuards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)
	admin := seedUser(t, db, "admin", model.RoleAdmin)

	// the only active admin can be neither demoted, deactivated nor deleted
	assert.ErrorIs(t, users.Update(ctx, admin, "", model.RoleUser, true), ErrLastAdmin)
	assert.ErrorIs(t, users.Update(ctx, admin, "", model.RoleAdmin, false), ErrLastAdmin)
	assert.ErrorIs(t, users.Delete(ctx, admin), ErrLastAdmin)

	// with a second active admin present the guard releases
	second := seedUser(t, db, "admin2", model.RoleAdmin)
	require.NoError(t, users.Update(ctx, admin, "", model.RoleUser, true))

	// the demotion made admin2 the only admin, so the guard re-engages
	assert.ErrorIs(t, users.Delete(ctx, second), ErrLastAdmin)
	require.NoError(t, users.Delete(ctx, admin))
}

func TestUserDeleteCascadesPermissions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)
	admin := seedUser(t, db, "admin", model.RoleAdmin)
	alice := seedUser(t, db, "alice", model.RoleUser)
	typeID := seedType(t, db, "cities", admin)

	perms := NewPermissionRepo(db)
	require.NoError(t, perms.Grant(ctx, alice, typeID, model.PermWrite, admin))
	require.NoError(t, users.Delete(ctx, alice))

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM user_permissions WHERE user_id = ?`, alice).Scan(&count))
	assert.Zero(t, count)

	_, err := users.GetByID(ctx, alice)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserResetPassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)
	alice := seedUser(t, db, "alice", model.RoleUser)

	require.NoError(t, users.ResetPassword(ctx, alice, "newpass", bcrypt.MinCost))
	_, err := users.Authenticate(ctx, "alice", "newpass")
	assert.NoError(t, err)
	_, err = users.Authenticate(ctx, "alice", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.ErrorIs(t, users.ResetPassword(ctx, 9999, "x", bcrypt.MinCost), ErrUserNotFound)
}

func TestUserGenerate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)

	generated, err := users.Generate(ctx, 5, model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)
	require.Len(t, generated, 5)

	seen := make(map[string]bool)
	for _, g := range generated {
		assert.False(t, seen[g.Username], "usernames must be unique")
		seen[g.Username] = true
		assert.GreaterOrEqual(t, len(g.Username), 6)
		assert.Len(t, g.Password, 8)

		u, err := users.Authenticate(ctx, g.Username, g.Password)
		require.NoError(t, err)
		assert.Equal(t, g.ID, u.ID)
	}
}
