package user

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
)

type UserSQL struct {
	Conn driver.ITransactionalDB `dep:""`
}

var _ UserRepository = &UserSQL{}

func NewUserRepository(Conn driver.ITransactionalDB) *UserSQL {
	return &UserSQL{Conn}
}

// FindByCredential query user by username or email, nil when nothing matches
func (repo *UserSQL) FindByCredential(ctx context.Context, post *UserModel) (*UserModel, error) {
	email := post.Email
	if email == "" {
		email = post.Username
	}
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    id, username, password, email, login_retry, last_login
FROM
    app_user
WHERE
    username = $1 OR email = $2
	`, post.Username, email)
	if err != nil {
		return nil, errors.Wrap(err, "querying user")
	}
	defer rows.Close()

	if rows.Next() {
		user := new(UserModel)
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.LoginRetry, &user.LastLogin); err != nil {
			return nil, errors.Wrap(err, "scanning user")
		}
		return user, nil
	}
	return nil, errors.Wrap(rows.Err(), "querying user")
}

func (repo *UserSQL) SaveUser(ctx context.Context, post *UserModel) error {
	_, err := repo.Conn.ExecContext(ctx, `
INSERT INTO app_user (id, username, password, email, last_login)
VALUES ($1, $2, $3, $4, $5)
	`, post.ID, post.Username, post.Password, post.Email, post.LastLogin)
	if driver.IsDuplicateKey(err) {
		return ErrDuplicatedUser
	}
	return errors.Wrap(err, "saving user")
}

func (repo *UserSQL) UpdateLogin(ctx context.Context, post *UserModel) error {
	_, err := repo.Conn.ExecContext(ctx, `
UPDATE app_user
SET login_retry = $1, last_login = $2
WHERE id = $3
	`, post.LoginRetry, post.LastLogin, post.ID)
	return errors.Wrap(err, "updating user login")
}
