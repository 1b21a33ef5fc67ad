package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/agro-operations/internal/model"
)

const userColumns = "id,name,identity_number,email,phone,area,role,password_hash,active,created_at"

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.IdentityNumber, &u.Email, &u.Phone, &u.Area, &u.Role,
		&u.PasswordHash, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// normalizeEmail lower-cases and trims an address before storage or lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u, which must already carry a password hash, and fills in
// its ID and CreatedAt.  A unique index violation yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name,identity_number,email,phone,area,role,password_hash,active) VALUES (?,?,?,?,?,?,?,?)",
		u.Name, u.IdentityNumber, u.Email, u.Phone, u.Area, u.Role, u.PasswordHash, u.Active)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return translate(r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM users WHERE id=?", u.ID).Scan(&u.CreatedAt))
}

// GetByID fetches a user by id regardless of its active flag.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// FindByIdentifier matches identifier against either the email or the
// identity number column.
func (r *UserRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? OR identity_number=? LIMIT 1",
		strings.ToLower(identifier), identifier))
}

// ExistsByEmailOrIdentity reports whether any user holds email or identity.
func (r *UserRepo) ExistsByEmailOrIdentity(ctx context.Context, email, identity string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=? OR identity_number=?)",
		normalizeEmail(email), strings.TrimSpace(identity)).Scan(&exists)
	return exists, err
}

// EmailTakenByOther reports whether a user other than excludeID holds email.
func (r *UserRepo) EmailTakenByOther(ctx context.Context, email string, excludeID uint64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=? AND id<>?)",
		normalizeEmail(email), excludeID).Scan(&exists)
	return exists, err
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes every non-credential column of u.  The password column is
// only ever changed through UpdatePassword.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?,identity_number=?,email=?,phone=?,area=?,role=?,active=? WHERE id=?",
		u.Name, u.IdentityNumber, u.Email, u.Phone, u.Area, u.Role, u.Active, u.ID)
	if err != nil {
		return translate(err)
	}
	// MySQL reports zero affected rows for a no-op update, so existence is
	// checked separately.
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, u.ID)
		return err
	}
	return nil
}

// UpdatePassword replaces the stored hash for id.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// SetActive flips the active flag for id.  Rows are never deleted.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}
