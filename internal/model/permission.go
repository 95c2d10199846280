package model

// PermissionKind is the access level a permission row grants on a data
// type. Read is open to every authenticated user and never needs a row;
// write is grantable per (user, type); admin-level operations (schema
// mutation, type deletion, record update/delete) are reserved for users
// with the admin role.
type PermissionKind string

const (
	PermRead  PermissionKind = "read"
	PermWrite PermissionKind = "write"
	PermAdmin PermissionKind = "admin"
)

// Valid reports whether k is a recognised permission kind.
func (k PermissionKind) Valid() bool {
	return k == PermRead || k == PermWrite || k == PermAdmin
}

// Permission mirrors a row of the `user_permissions` table. At most one
// row exists per (UserID, DataTypeID); granting again replaces it.
type Permission struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	DataTypeID int64          `json:"data_type_id"`
	Kind       PermissionKind `json:"permission_type"`
	GrantedBy  int64          `json:"granted_by"`
	GrantedAt  string         `json:"granted_at"`
}
