package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/coursesync/internal/infrastructure/auth"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/pot-code/coursesync/internal/infrastructure/validate"
	"github.com/pot-code/coursesync/internal/user"
)

// UserHandler user related operations
type UserHandler struct {
	JWTUtil     *auth.JWTUtil
	KVStore     driver.KeyValueDB
	UserUseCase user.UserUseCase
	Validator   validate.Validator
}

// NewUserHandler create an user controller instance
func NewUserHandler(
	JWTUtil *auth.JWTUtil,
	KVStore driver.KeyValueDB,
	UserUseCase user.UserUseCase,
	Validator validate.Validator,
) *UserHandler {
	return &UserHandler{
		JWTUtil:     JWTUtil,
		KVStore:     KVStore,
		UserUseCase: UserUseCase,
		Validator:   Validator,
	}
}

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleSignIn ...
func (uh *UserHandler) HandleSignIn(c echo.Context) (err error) {
	post := new(signInRequest)
	if err = c.Bind(post); err != nil {
		return bindError(c, "credential", err)
	}
	if errs := uh.Validator.Struct(post); errs != nil {
		return respondInvalid(c, "Failed to validate fields", errs)
	}

	u, err := uh.UserUseCase.SignIn(c.Request().Context(), &user.UserModel{Username: post.Username, Password: post.Password})
	switch {
	case errors.Is(err, user.ErrNoSuchUser):
		return respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, user.ErrUserTooManyRetry):
		return respondError(c, http.StatusForbidden, err.Error())
	case err != nil:
		return err
	}

	// issue JWT
	tokenStr, err := uh.JWTUtil.GenerateTokenStr(u.ID, u.Email, u.Username)
	if err != nil {
		return err
	}
	uh.JWTUtil.SetClientToken(c, tokenStr)
	return c.JSON(http.StatusOK, u)
}

// HandleSignUp ...
func (uh *UserHandler) HandleSignUp(c echo.Context) (err error) {
	post := new(user.UserModel)
	if err = c.Bind(post); err != nil {
		return bindError(c, "user entity", err)
	}
	if errs := uh.Validator.Struct(post); errs != nil {
		return respondInvalid(c, "Failed to validate fields", errs)
	}

	u, err := uh.UserUseCase.SignUp(c.Request().Context(), post)
	if err != nil {
		if errors.Is(err, user.ErrDuplicatedUser) {
			return respondError(c, http.StatusConflict, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// HandleSignOut blacklist the token for the rest of its lifetime
func (uh *UserHandler) HandleSignOut(c echo.Context) (err error) {
	ju := uh.JWTUtil

	tokenStr, err := ju.ExtractToken(c)
	if err != nil {
		return c.NoContent(http.StatusOK)
	}
	token, err := ju.Validate(tokenStr)
	if err != nil {
		return c.NoContent(http.StatusUnauthorized)
	}
	ju.ClearClientToken(c)
	if err := uh.KVStore.SetEX(tokenStr, "", token.TimeRemaining()); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// HandleUserExists ...
func (uh *UserHandler) HandleUserExists(c echo.Context) (err error) {
	post := new(user.UserModel)
	post.Username = c.QueryParam("username")
	post.Email = c.QueryParam("email")

	if err := uh.Validator.AllEmpty([]string{"username", "email"}, post.Username, post.Email); err != nil {
		return respondInvalid(c, "Failed to validate params", []*validate.FieldError{err})
	}

	existing, err := uh.UserUseCase.Exists(c.Request().Context(), post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, existing)
}
