package user

import (
	"context"
	"testing"

	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSQL(t *testing.T) {
	conn, err := driver.NewSQLiteConn(":memory:", &driver.DBConfig{})
	require.NoError(t, err)
	defer conn.Close(context.Background())
	ctx := context.Background()
	require.NoError(t, driver.Migrate(ctx, conn))

	repo := NewUserRepository(conn)
	require.NoError(t, repo.SaveUser(ctx, &UserModel{ID: "u1", Username: "gopher", Email: "gopher@example.com", Password: "hash"}))

	found, err := repo.FindByCredential(ctx, &UserModel{Username: "gopher@example.com"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "u1", found.ID)
	assert.Equal(t, "hash", found.Password)

	found.LoginRetry, found.LastLogin = 2, 1700000000000
	require.NoError(t, repo.UpdateLogin(ctx, found))
	found, err = repo.FindByCredential(ctx, &UserModel{Username: "gopher"})
	require.NoError(t, err)
	assert.Equal(t, 2, found.LoginRetry)
	assert.Equal(t, int64(1700000000000), found.LastLogin)

	err = repo.SaveUser(ctx, &UserModel{ID: "u2", Username: "gopher", Email: "other@example.com", Password: "hash"})
	assert.Equal(t, ErrDuplicatedUser, err)

	missing, err := repo.FindByCredential(ctx, &UserModel{Username: "nobody"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}
