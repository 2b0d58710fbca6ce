package progress

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
)

type ProgressSQL struct {
	Conn driver.ITransactionalDB `dep:""`
}

var _ ProgressRepository = &ProgressSQL{}

func NewProgressRepository(Conn driver.ITransactionalDB) *ProgressSQL {
	return &ProgressSQL{
		Conn: Conn,
	}
}

// upsert renders the insert-or-update statement for the connection's dialect,
// columns are the updated columns after the (user_id, lesson_id) key
func (repo *ProgressSQL) upsert(columns ...string) string {
	query := "INSERT INTO lesson_progress (user_id, lesson_id"
	values := "VALUES ($1, $2"
	for i, col := range columns {
		query += ", " + col
		values += ", $" + strconv.Itoa(i+3)
	}
	query += ") " + values + ")"

	if repo.Conn.Dialect() == driver.DialectMySQL {
		query += " ON DUPLICATE KEY UPDATE "
		for i, col := range columns {
			if i > 0 {
				query += ", "
			}
			query += col + " = VALUES(" + col + ")"
		}
		return query
	}
	query += " ON CONFLICT (user_id, lesson_id) DO UPDATE SET "
	for i, col := range columns {
		if i > 0 {
			query += ", "
		}
		query += col + " = excluded." + col
	}
	return query
}

func (repo *ProgressSQL) FindByCourse(ctx context.Context, userID, courseID string) (Lookup, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    p.lesson_id, p.position, p.percent, p.completed, p.completed_at, p.favorite, p.updated_at
FROM
    lesson_progress p
        INNER JOIN
    lesson l ON (l.id = p.lesson_id)
        INNER JOIN
    course_module m ON (m.id = l.module_id)
WHERE
    m.course_id = $1
        AND p.user_id = $2
	`, courseID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying lesson progress")
	}
	defer rows.Close()

	result := make(Lookup)
	for rows.Next() {
		var completedAt sql.NullInt64
		item := new(RecordModel)
		if err := rows.Scan(&item.LessonID, &item.Position, &item.Percent, &item.Completed,
			&completedAt, &item.Favorite, &item.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning lesson progress")
		}
		if completedAt.Valid {
			ts := completedAt.Int64
			item.CompletedAt = &ts
		}
		result[item.LessonID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating lesson progress")
	}
	return result, nil
}

func (repo *ProgressSQL) UpsertPosition(ctx context.Context, update *PositionUpdate) error {
	_, err := repo.Conn.ExecContext(ctx, repo.upsert("position", "percent", "updated_at"),
		update.UserID, update.LessonID, update.Position, update.Percent, update.At)
	return errors.Wrap(err, "saving playback position")
}

func (repo *ProgressSQL) UpsertCompletion(ctx context.Context, update *CompletionUpdate) error {
	var (
		position    = 0
		percent     = 0.0
		completedAt interface{}
	)
	if update.Completed {
		position, percent, completedAt = EndPosition, 100, update.At
	}
	_, err := repo.Conn.ExecContext(ctx, repo.upsert("position", "percent", "completed", "completed_at", "updated_at"),
		update.UserID, update.LessonID, position, percent, update.Completed, completedAt, update.At)
	return errors.Wrap(err, "saving lesson completion")
}

// UpsertFavorite leaves updated_at alone, favoriting a lesson is not watching it
func (repo *ProgressSQL) UpsertFavorite(ctx context.Context, update *FavoriteUpdate) error {
	_, err := repo.Conn.ExecContext(ctx, repo.upsert("favorite"),
		update.UserID, update.LessonID, update.Favorite)
	return errors.Wrap(err, "saving lesson favorite")
}
