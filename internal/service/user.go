package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/senseivictor/baza-de-date/internal/repository"
)

// RegisterInput is the body of POST /register-user.
type RegisterInput struct {
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UserService registers users.
type UserService struct {
	Store      repository.Storage
	BcryptCost int
	Now        func() time.Time
}

func NewUserService(store repository.Storage, bcryptCost int) *UserService {
	return &UserService{Store: store, BcryptCost: bcryptCost, Now: time.Now}
}

// Register returns the id of the user called in.Name, creating the user
// first when there is none.  created reports whether a row was inserted.
// Two concurrent first registrations of the same name both end up with the
// id of the single row that won the unique constraint.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (id int64, created bool, err error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, false, repository.BadRequest("name is required")
	}
	users := repository.NewUserRepo(s.Store)

	u, err := users.GetByName(ctx, name)
	if err == nil {
		return u.UserID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	var email *string
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		if e != "" {
			email = &e
		}
	}
	var hash *string
	if in.Password != nil && *in.Password != "" {
		h, err := hashPassword(*in.Password, s.BcryptCost)
		if err != nil {
			return 0, false, err
		}
		hash = &h
	}

	id, err = users.Create(ctx, name, email, hash, s.Now().Unix())
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		// lost a race on the name; the winner's row is the answer
		if u, err2 := users.GetByName(ctx, name); err2 == nil {
			return u.UserID, false, nil
		}
		return 0, false, err
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
