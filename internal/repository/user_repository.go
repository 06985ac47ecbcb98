package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/utils"
)

// UserRepo persists accounts in the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts a plain user.  The input must
// already be normalized and validated.
func (r *UserRepo) Create(ctx context.Context, in model.RegisterInput, cost int) (model.User, error) {
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return model.User{}, err
	}
	created := creationTime()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, role, created_at) VALUES (?,?,?,?,?,?)",
		in.Name, in.Email, in.Phone, hash, model.RoleUser, created)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		ID:        uint64(id),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Role:      model.RoleUser,
		CreatedAt: created,
	}, nil
}

// GetByEmail fetches a user including the password hash, for login.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, email, phone, role, created_at, password_hash FROM users WHERE email = ? LIMIT 1",
		email).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt, &u.PasswordHash)
	return u, notFound(err)
}

// GetByID fetches a user by id without the password hash.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, email, phone, role, created_at FROM users WHERE id = ? LIMIT 1",
		id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt)
	return u, notFound(err)
}

// List returns one page of users ordered by id and the total user count.
func (r *UserRepo) List(ctx context.Context, p utils.Pagination) ([]model.User, int, error) {
	return listWithTotal(ctx, r.DB, pageQuery{
		countSQL: "SELECT COUNT(*) FROM users",
		pageSQL:  "SELECT id, name, email, phone, role, created_at FROM users ORDER BY id",
		page:     p,
	}, func(rows *sql.Rows) (model.User, error) {
		var u model.User
		err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.CreatedAt)
		return u, err
	})
}
