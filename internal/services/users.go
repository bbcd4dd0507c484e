package services

import (
	"context"
	"strings"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/models"
	"daycare-backend-go/internal/session"
)

// UserSummary is an account as listed in Administration. Protected marks the
// bootstrap admin, which can be neither re-roled nor deleted.
type UserSummary struct {
	ID        int64  `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Role      string `db:"role" json:"role"`
	Protected bool   `db:"protected" json:"protected"`
}

const userColumns = `id, username, role, protected`

func ListUsers(ctx context.Context, q db.Querier) ([]UserSummary, error) {
	users := []UserSummary{}
	err := q.Select(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`)
	return users, err
}

func GetUser(ctx context.Context, q db.Querier, userID int64) (UserSummary, error) {
	var user UserSummary
	err := q.Get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	if db.IsNotFound(err) {
		return UserSummary{}, ErrNotFound("User not found")
	}
	return user, err
}

// CreateUser inserts an account. A taken username yields ErrDuplicateUsername
// and leaves the table untouched.
func CreateUser(ctx context.Context, store *db.Store, tokens TokenService, username, password, role string) (UserSummary, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return UserSummary{}, ErrBadRequest("Username and password are required")
	}
	if !IsRole(role) {
		return UserSummary{}, ErrBadRequest("Invalid role")
	}
	hash, err := tokens.HashPassword(password)
	if err != nil {
		return UserSummary{}, err
	}
	var id int64
	err = store.WithTx(ctx, func(tx *db.Tx) error {
		return tx.Get(ctx, &id, `INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?) RETURNING id`,
			username, hash, role)
	})
	if db.IsUniqueViolation(err) {
		return UserSummary{}, ErrDuplicateUsername
	}
	if err != nil {
		return UserSummary{}, err
	}
	return UserSummary{ID: id, Username: username, Role: role}, nil
}

// UpdateUserRole changes an account's role. Protected accounts are fixed. The
// new role applies to the account's next request.
func UpdateUserRole(ctx context.Context, store *db.Store, userID int64, role string) (UserSummary, error) {
	if !IsRole(role) {
		return UserSummary{}, ErrBadRequest("Invalid role")
	}
	user, err := GetUser(ctx, store, userID)
	if err != nil {
		return UserSummary{}, err
	}
	if user.Protected {
		return UserSummary{}, ErrForbidden("The main administrator cannot be modified")
	}
	if _, err := store.Exec(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, userID); err != nil {
		return UserSummary{}, err
	}
	user.Role = role
	return user, nil
}

// DeleteUser removes another account after re-checking the acting admin's own
// password.
func DeleteUser(ctx context.Context, store *db.Store, tokens TokenService, actor session.Session, userID int64, password string) error {
	if !actor.IsAdmin() {
		return ErrForbidden("Not allowed")
	}
	if actor.UserID == userID {
		return ErrBadRequest("You cannot delete your own account")
	}
	target, err := GetUser(ctx, store, userID)
	if err != nil {
		return err
	}
	if target.Protected {
		return ErrForbidden("The main administrator cannot be deleted")
	}
	var hash string
	if err := store.Get(ctx, &hash, `SELECT password_hash FROM users WHERE id = ?`, actor.UserID); err != nil {
		if db.IsNotFound(err) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !tokens.VerifyPassword(password, hash) {
		return ErrInvalidCredentials
	}
	_, err = store.Exec(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func ChangePassword(ctx context.Context, store *db.Store, tokens TokenService, userID int64, current, next string) error {
	if strings.TrimSpace(next) == "" {
		return ErrBadRequest("New password is required")
	}
	var hash string
	if err := store.Get(ctx, &hash, `SELECT password_hash FROM users WHERE id = ?`, userID); err != nil {
		if db.IsNotFound(err) {
			return ErrNotFound("User not found")
		}
		return err
	}
	if !tokens.VerifyPassword(current, hash) {
		return ErrInvalidCredentials
	}
	newHash, err := tokens.HashPassword(next)
	if err != nil {
		return err
	}
	// tokens issued with the old password stop verifying
	_, err = store.Exec(ctx, `UPDATE users SET password_hash = ?, token_version = token_version + 1 WHERE id = ?`, newHash, userID)
	return err
}

// EnsureBootstrapAdmin seeds the admin account when no user with that name
// exists and marks it protected. It reports whether a row was inserted. The
// mark stays on the row, so renaming the setting later does not unprotect an
// earlier bootstrap account.
func EnsureBootstrapAdmin(ctx context.Context, store *db.Store, tokens TokenService, username, password string) (bool, error) {
	var count int
	if err := store.Get(ctx, &count, `SELECT COUNT(*) FROM users WHERE username = ?`, username); err != nil {
		return false, err
	}
	created := false
	if count == 0 {
		if _, err := CreateUser(ctx, store, tokens, username, password, models.RoleAdmin); err != nil {
			return false, err
		}
		created = true
	}
	if _, err := store.Exec(ctx, `UPDATE users SET protected = ? WHERE username = ?`, true, username); err != nil {
		return false, err
	}
	return created, nil
}
