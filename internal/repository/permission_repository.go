// This file implements the permission guard. The policy is asymmetric
// on purpose: read is open to every authenticated user, write is
// grantable per (user, type), and admin-level operations (schema
// mutation, type deletion, record update/delete) are reserved for the
// admin role. A write grant covers data rows only, never structure.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/utils"
)

// PermissionRepo evaluates and manages per-type access grants.
type PermissionRepo struct {
	db    *sql.DB
	retry *retrier
}

// NewPermissionRepo constructs a PermissionRepo with the given DB handle.
func NewPermissionRepo(db *sql.DB) *PermissionRepo {
	return &PermissionRepo{db: db, retry: newRetrier()}
}

// IsAdmin reports whether the user carries the admin role. Unknown
// users are not admins.
func (r *PermissionRepo) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == model.RoleAdmin, nil
}

// HasPermission reports whether the user may act on the data type at
// the given level. Admins always pass. Read is unconditionally granted
// to every authenticated user. Write requires an explicit write grant.
// Admin-level checks pass only for the admin role; no grant kind
// substitutes for it.
func (r *PermissionRepo) HasPermission(ctx context.Context, userID, typeID int64, kind model.PermissionKind) (bool, error) {
	isAdmin, err := r.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}

	switch kind {
	case model.PermRead:
		return true, nil
	case model.PermWrite:
		var granted string
		err := r.db.QueryRowContext(ctx,
			`SELECT permission_type FROM user_permissions WHERE user_id = ? AND data_type_id = ?`,
			userID, typeID).Scan(&granted)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return model.PermissionKind(granted) == model.PermWrite, nil
	default:
		return false, nil
	}
}

// Require is HasPermission folded into an error: ErrPermissionDenied
// when the check fails, nil when it passes.
func (r *PermissionRepo) Require(ctx context.Context, userID, typeID int64, kind model.PermissionKind) error {
	ok, err := r.HasPermission(ctx, userID, typeID, kind)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// Grant upserts a permission row. At most one row exists per
// (user, type); granting again replaces the kind, granter and
// timestamp.
func (r *PermissionRepo) Grant(ctx context.Context, userID, typeID int64, kind model.PermissionKind, grantedBy int64) error {
	if !kind.Valid() {
		return errors.New("invalid permission type: " + string(kind))
	}
	return r.retry.do(func() error {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO user_permissions (user_id, data_type_id, permission_type, granted_by, granted_at)
			 VALUES (?, ?, ?, ?, ?)`,
			userID, typeID, string(kind), grantedBy, utils.NowDB())
		return err
	})
}

// Revoke removes the permission row for (user, type), if any.
func (r *PermissionRepo) Revoke(ctx context.Context, userID, typeID int64) error {
	return r.retry.do(func() error {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM user_permissions WHERE user_id = ? AND data_type_id = ?`, userID, typeID)
		return err
	})
}

// ListForUser returns the user's grants, newest first.
func (r *PermissionRepo) ListForUser(ctx context.Context, userID int64) ([]model.Permission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, data_type_id, permission_type, COALESCE(granted_by, 0), granted_at
		 FROM user_permissions WHERE user_id = ? ORDER BY granted_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []model.Permission
	for rows.Next() {
		var p model.Permission
		var kind string
		if err := rows.Scan(&p.ID, &p.UserID, &p.DataTypeID, &kind, &p.GrantedBy, &p.GrantedAt); err != nil {
			return nil, err
		}
		p.Kind = model.PermissionKind(kind)
		p.GrantedAt = utils.FormatTimestamp(p.GrantedAt)
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
