package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/senseivictor/baza-de-date/internal/model"
)

type UserRepo struct{ S Storage }

func NewUserRepo(s Storage) *UserRepo { return &UserRepo{S: s} }

const userColumns = "user_id, name, email, password_hash, created_at"

// Create inserts a user and returns its ID.  email and passwordHash may be nil.
func (r *UserRepo) Create(ctx context.Context, name string, email, passwordHash *string, createdAt int64) (int64, error) {
	return r.S.Insert(ctx, "users", "user_id", []Column{
		{Name: "name", Value: strings.TrimSpace(name)},
		{Name: "email", Value: Nullable(email)},
		{Name: "password_hash", Value: Nullable(passwordHash)},
		{Name: "created_at", Value: createdAt},
	})
}

// GetByName fetches a user by display name.  It returns sql.ErrNoRows
// when no such user exists.
func (r *UserRepo) GetByName(ctx context.Context, name string) (model.User, error) {
	return r.one(ctx, "WHERE name = ?", strings.TrimSpace(name))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return r.one(ctx, "WHERE user_id = ?", id)
}

func (r *UserRepo) one(ctx context.Context, where string, arg any) (model.User, error) {
	d := r.S.Dialect()
	q := "SELECT " + d.Top(1) + userColumns + " FROM users " + where + d.Limit(1)
	rows, err := r.S.Query(ctx, q, arg)
	if err != nil {
		return model.User{}, err
	}
	if len(rows) == 0 {
		return model.User{}, sql.ErrNoRows
	}
	row := rows[0]
	return model.User{
		UserID:       row.Int64("user_id"),
		Name:         row.String("name"),
		Email:        row.NullString("email"),
		PasswordHash: row.NullString("password_hash"),
		CreatedAt:    row.Int64("created_at"),
	}, nil
}

// Names resolves user ids to display names with one query.  Unknown ids
// are absent from the result.
func (r *UserRepo) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	return lookupNames(ctx, r.S, "users", "user_id", "name", ids)
}
