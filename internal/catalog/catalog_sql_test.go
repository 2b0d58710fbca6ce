package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) driver.ITransactionalDB {
	t.Helper()
	conn, err := driver.NewSQLiteConn(":memory:", &driver.DBConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(context.Background()) })
	require.NoError(t, driver.Migrate(context.Background(), conn))
	return conn
}

func exec(t *testing.T, conn driver.ITransactionalDB, query string, args ...interface{}) {
	t.Helper()
	_, err := conn.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
}

func TestCatalogSQL(t *testing.T) {
	conn := openTestDB(t)
	exec(t, conn, `INSERT INTO course (id, title) VALUES ($1, $2)`, "go", "Go in practice")
	exec(t, conn, `INSERT INTO course_module (id, course_id, name, sort_index) VALUES ($1, $2, $3, $4)`, "m2", "go", "Concurrency", 2)
	exec(t, conn, `INSERT INTO course_module (id, course_id, name, sort_index) VALUES ($1, $2, $3, $4)`, "m1", "go", "Basics", 1)
	exec(t, conn, `INSERT INTO lesson (id, module_id, title, video_ref, duration, sort_index) VALUES ($1, $2, $3, $4, $5, $6)`,
		"c1", "m2", "Goroutines", "vid-c1", 600, 1)
	exec(t, conn, `INSERT INTO lesson (id, module_id, title, video_ref, duration, sort_index) VALUES ($1, $2, $3, $4, $5, $6)`,
		"b1", "m1", "Types", "vid-b1", nil, 1)

	repo := NewCatalogRepository(conn)
	ctx := context.Background()

	course, err := repo.FindCourse(ctx, "go")
	require.NoError(t, err)
	require.NotNil(t, course)
	assert.Equal(t, "Go in practice", course.Title)

	missing, err := repo.FindCourse(ctx, "rust")
	require.NoError(t, err)
	assert.Nil(t, missing)

	modules, err := repo.ListModules(ctx, "go")
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "m1", modules[0].ID)

	lessons, err := repo.ListLessons(ctx, "go")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "b1", lessons[0].ID)
	assert.Nil(t, lessons[0].Duration)
	require.NotNil(t, lessons[1].Duration)
	assert.Equal(t, 600, *lessons[1].Duration)

	c, err := NewCatalogUseCase(repo).Resolve(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "c1"}, c.LessonIDs())
}

type interruptedRows struct {
	err error
}

func (r *interruptedRows) Next() bool                     { return false }
func (r *interruptedRows) Scan(dest ...interface{}) error { return nil }
func (r *interruptedRows) Close() error                   { return nil }
func (r *interruptedRows) Err() error                     { return r.err }

type interruptedConn struct {
	driver.ITransactionalDB
	err error
}

func (c *interruptedConn) QueryContext(ctx context.Context, query string, args ...interface{}) (driver.ISQLRows, error) {
	return &interruptedRows{err: c.err}, nil
}

func TestCatalogSQL_IterationErrorIsReported(t *testing.T) {
	repo := NewCatalogRepository(&interruptedConn{err: errors.New("connection reset by peer")})
	ctx := context.Background()

	_, err := repo.FindCourse(ctx, "go")
	assert.Error(t, err, "an interrupted lookup is not an unknown course")
	_, err = repo.ListModules(ctx, "go")
	assert.Error(t, err)
	_, err = repo.ListLessons(ctx, "go")
	assert.Error(t, err)

	c, err := NewCatalogUseCase(repo).Resolve(ctx, "go")
	assert.Error(t, err)
	assert.NotEqual(t, ErrCourseNotFound, err)
	assert.True(t, c.Empty())
}
