package user

import (
	"context"
	"errors"
)

type UserModel struct {
	ID         string `json:"id"`
	Username   string `json:"username" validate:"required,min=3,max=64"`
	Email      string `json:"email" validate:"required,email,max=128"`
	Password   string `json:"password,omitempty" validate:"required,min=8,max=72"`
	LoginRetry int    `json:"-"`
	LastLogin  int64  `json:"-"` // milliseconds
}

var (
	// ErrNoSuchUser failed to validate the credential
	ErrNoSuchUser = errors.New("No such user or password is incorrect")
	// ErrDuplicatedUser unique key constraint violation
	ErrDuplicatedUser = errors.New("Username or email is already registered")
	// ErrUserTooManyRetry the account is locked after too many failed sign-ins
	ErrUserTooManyRetry = errors.New("Too many failed attempts, try again later")
)

type UserUseCase interface {
	SignIn(ctx context.Context, post *UserModel) (*UserModel, error)
	SignUp(ctx context.Context, post *UserModel) (*UserModel, error)
	Exists(ctx context.Context, post *UserModel) (bool, error)
}

type UserRepository interface {
	FindByCredential(ctx context.Context, post *UserModel) (*UserModel, error)
	UpdateLogin(ctx context.Context, post *UserModel) error
	SaveUser(ctx context.Context, post *UserModel) error
}
