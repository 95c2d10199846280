package model

// User represents an application user record as stored in the `users`
// table. Passwords are never stored in plain text; only a bcrypt hash.
// Role is either RoleAdmin or RoleUser. Admins bypass all per-type
// permission checks and are the only users allowed to mutate schemas.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  FullName     – optional display name.
//  Role         – "admin" or "user".
//  IsActive     – whether the account may log in.
//  CreatedAt    – DB timestamp of creation ("YYYY-MM-DD HH:MM:SS").
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
}

// Roles understood by the permission guard. Any role other than
// RoleAdmin is treated as an ordinary user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
