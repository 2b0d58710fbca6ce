package user

import (
	"context"
	"time"

	"github.com/pot-code/coursesync/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"golang.org/x/crypto/bcrypt"
)

// UserUseCaseImpl ...
type UserUseCaseImpl struct {
	UserRepository UserRepository
	UUIDGenerator  uuid.Generator
	MaximumRetry   int // failed sign-ins before the account is locked, 0 disables locking
	RetryTimeout   time.Duration
	now            func() time.Time
}

var _ UserUseCase = &UserUseCaseImpl{}

// NewUserUseCase ...
func NewUserUseCase(
	UserRepository UserRepository,
	UUIDGenerator uuid.Generator,
	MaximumRetry int,
	RetryTimeout time.Duration,
) *UserUseCaseImpl {
	return &UserUseCaseImpl{
		UserRepository: UserRepository,
		UUIDGenerator:  UUIDGenerator,
		MaximumRetry:   MaximumRetry,
		RetryTimeout:   RetryTimeout,
		now:            time.Now,
	}
}

// SignIn check the credential, post.Username may hold either the username or the email
func (uu *UserUseCaseImpl) SignIn(ctx context.Context, post *UserModel) (*UserModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "UserUseCaseImpl.SignIn", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	user, err := ur.FindByCredential(ctx, &UserModel{Username: post.Username, Email: post.Username})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoSuchUser
	}

	now := uu.now()
	nowMS := now.UnixNano() / int64(time.Millisecond)
	if uu.MaximumRetry > 0 && user.LoginRetry >= uu.MaximumRetry {
		lockedUntil := user.LastLogin + uu.RetryTimeout.Milliseconds()
		if nowMS < lockedUntil {
			return nil, ErrUserTooManyRetry
		}
		user.LoginRetry = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(post.Password)); err != nil {
		if err != bcrypt.ErrMismatchedHashAndPassword {
			return nil, err
		}
		user.LoginRetry++
		user.LastLogin = nowMS
		if err := ur.UpdateLogin(ctx, user); err != nil {
			return nil, err
		}
		return nil, ErrNoSuchUser
	}

	// reset retry number
	user.LoginRetry = 0
	user.LastLogin = nowMS
	if err := ur.UpdateLogin(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// SignUp create a user
func (uu *UserUseCaseImpl) SignUp(ctx context.Context, post *UserModel) (*UserModel, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "UserUseCaseImpl.SignUp", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	// search for existence
	if m, err := ur.FindByCredential(ctx, post); err != nil {
		return nil, err
	} else if m != nil {
		return nil, ErrDuplicatedUser
	}

	// generate id
	if id, err := uu.UUIDGenerator.Generate(); err == nil {
		post.ID = id
	} else {
		return nil, err
	}

	// hash password
	if password, err := bcrypt.GenerateFromPassword([]byte(post.Password), bcrypt.DefaultCost); err == nil {
		post.Password = string(password)
	} else {
		return nil, err
	}

	// save user
	if err := ur.SaveUser(ctx, post); err != nil {
		return nil, err
	}
	post.Password = ""
	return post, nil
}

// Exists find if user exists in database
func (uu *UserUseCaseImpl) Exists(ctx context.Context, post *UserModel) (bool, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "UserUseCaseImpl.Exists", "service")
	defer apmSpan.End()

	user, err := uu.UserRepository.FindByCredential(ctx, post)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}
