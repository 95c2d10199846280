package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/iliyamo/datavue/internal/model"
	"github.com/iliyamo/datavue/internal/utils"
)

// ErrUsernameExists is returned when creating a user whose username is
// already taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrInvalidCredentials is returned by Authenticate for a wrong
// username/password pair or a deactivated account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrLastAdmin is returned when deleting or demoting the only remaining
// active admin, which would lock everyone out of schema management.
var ErrLastAdmin = errors.New("cannot remove the last admin")

// UserRepo manages persistence for application users.
type UserRepo struct {
	db    *sql.DB
	retry *retrier
}

// NewUserRepo constructs a UserRepo with the given DB handle.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db, retry: newRetrier()}
}

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, password, fullName, role string, cost int) (int64, error) {
	if role != model.RoleAdmin {
		role = model.RoleUser
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.retry.do(func() error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, full_name, role, created_at) VALUES (?, ?, ?, ?, ?)`,
			username, hash, fullName, role, utils.NowDB())
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUsernameExists
			}
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

// Authenticate verifies a username/password pair against the stored
// bcrypt hash. Deactivated accounts fail the same way as wrong
// passwords so the response does not leak account state.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID fetches a user by id. Returns ErrUserNotFound when absent.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, COALESCE(full_name, ''), role, is_active, created_at
		 FROM users WHERE id = ?`, id))
}

// GetByUsername fetches a user by username. Returns ErrUserNotFound
// when absent.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, COALESCE(full_name, ''), role, is_active, created_at
		 FROM users WHERE username = ?`, username))
}

func (r *UserRepo) scanOne(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = utils.FormatTimestamp(u.CreatedAt)
	return &u, nil
}

// List returns all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, COALESCE(full_name, ''), role, is_active, created_at
		 FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = utils.FormatTimestamp(u.CreatedAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update changes a user's full name, role and active flag. Demoting or
// deactivating the only active admin is refused with ErrLastAdmin.
func (r *UserRepo) Update(ctx context.Context, id int64, fullName, role string, isActive bool) error {
	if role != model.RoleAdmin {
		role = model.RoleUser
	}
	return r.retry.do(func() error {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.IsAdmin() && (role != model.RoleAdmin || !isActive) {
			last, err := r.isLastActiveAdmin(ctx, id)
			if err != nil {
				return err
			}
			if last {
				return ErrLastAdmin
			}
		}
		_, err = r.db.ExecContext(ctx,
			`UPDATE users SET full_name = ?, role = ?, is_active = ? WHERE id = ?`,
			fullName, role, isActive, id)
		return err
	})
}

// Delete removes a user. The only remaining active admin cannot be
// deleted. Permission grants of the user are removed alongside.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	return r.retry.do(func() error {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u.IsAdmin() {
			last, err := r.isLastActiveAdmin(ctx, id)
			if err != nil {
				return err
			}
			if last {
				return ErrLastAdmin
			}
		}

		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (r *UserRepo) isLastActiveAdmin(ctx context.Context, id int64) (bool, error) {
	var others int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active = 1 AND id != ?`, id).Scan(&others)
	if err != nil {
		return false, err
	}
	return others == 0, nil
}

// ResetPassword replaces a user's password hash.
func (r *UserRepo) ResetPassword(ctx context.Context, id int64, newPassword string, cost int) error {
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return err
	}
	return r.retry.do(func() error {
		res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// GeneratedUser is one credential pair produced by Generate. The plain
// password is returned exactly once and never stored.
type GeneratedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Generate bulk-creates count users with random usernames and
// passwords, returning the credentials for the operator to hand out.
func (r *UserRepo) Generate(ctx context.Context, count int, role string, cost int) ([]GeneratedUser, error) {
	generated := make([]GeneratedUser, 0, count)
	for i := 0; i < count; i++ {
		username, err := randomUsername()
		if err != nil {
			return generated, err
		}
		password, err := randomString("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", 8)
		if err != nil {
			return generated, err
		}

		var id int64
		// retry on username collision with a fresh random name
		for attempt := 0; ; attempt++ {
			id, err = r.Create(ctx, username, password, "", role, cost)
			if err == nil {
				break
			}
			if !errors.Is(err, ErrUsernameExists) || attempt >= 5 {
				return generated, err
			}
			username = fmt.Sprintf("%s%d", username, attempt+1)
		}
		generated = append(generated, GeneratedUser{ID: id, Username: username, Password: password, Role: role})
	}
	return generated, nil
}

func randomUsername() (string, error) {
	nBig, err := rand.Int(rand.Reader, big.NewInt(7))
	if err != nil {
		return "", err
	}
	length := 6 + int(nBig.Int64()) // 6..12 characters
	head, err := randomString("abcdefghijklmnopqrstuvwxyz", 1)
	if err != nil {
		return "", err
	}
	tail, err := randomString("abcdefghijklmnopqrstuvwxyz0123456789_", length-1)
	if err != nil {
		return "", err
	}
	return head + tail, nil
}

func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
