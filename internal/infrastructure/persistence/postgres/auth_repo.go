package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"retail-insight/internal/domain/auth"
)

// AuthRepo 提供 users 表的資料存取。
type AuthRepo struct {
	db *sql.DB
}

// NewAuthRepo 建立使用者資料存取實例。
func NewAuthRepo(db *sql.DB) *AuthRepo {
	return &AuthRepo{db: db}
}

// FindByEmail 依 email 查詢使用者。
func (r *AuthRepo) FindByEmail(ctx context.Context, email string) (auth.User, error) {
	const q = `
SELECT id, email, name, role, status, password_hash
FROM users
WHERE email = $1;
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, email))
}

// FindByID 依 id 查詢使用者。
func (r *AuthRepo) FindByID(ctx context.Context, id string) (auth.User, error) {
	const q = `
SELECT id, email, name, role, status, password_hash
FROM users
WHERE id = $1;
`
	return r.scanUser(r.db.QueryRowContext(ctx, q, id))
}

// UpsertUser 寫入或更新使用者，供啟動 seed 使用。
func (r *AuthRepo) UpsertUser(ctx context.Context, u auth.User) error {
	const q = `
INSERT INTO users (id, email, name, role, status, password_hash)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (email)
DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, status = EXCLUDED.status, updated_at = NOW();
`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Email, u.Name, string(u.Role), string(u.Status), u.Password)
	return err
}

func (r *AuthRepo) scanUser(row *sql.Row) (auth.User, error) {
	var u auth.User
	var role, status string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &status, &u.Password); err != nil {
		return auth.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = auth.Role(role)
	u.Status = auth.Status(status)
	return u, nil
}
