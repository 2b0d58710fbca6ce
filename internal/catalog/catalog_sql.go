package catalog

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
)

type CatalogSQL struct {
	Conn driver.ITransactionalDB `dep:""`
}

var _ CatalogRepository = &CatalogSQL{}

func NewCatalogRepository(Conn driver.ITransactionalDB) *CatalogSQL {
	return &CatalogSQL{
		Conn: Conn,
	}
}

func (repo *CatalogSQL) FindCourse(ctx context.Context, courseID string) (*CourseModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    id, title
FROM
    course
WHERE
    id = $1
	`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course")
	}
	defer rows.Close()

	if rows.Next() {
		course := new(CourseModel)
		if err := rows.Scan(&course.ID, &course.Title); err != nil {
			return nil, errors.Wrap(err, "scanning course")
		}
		return course, nil
	}
	return nil, errors.Wrap(rows.Err(), "querying course")
}

func (repo *CatalogSQL) ListModules(ctx context.Context, courseID string) ([]*ModuleModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    id, course_id, name, sort_index
FROM
    course_module
WHERE
    course_id = $1
ORDER BY sort_index ASC
	`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	defer rows.Close()

	var result []*ModuleModel
	for rows.Next() {
		item := new(ModuleModel)
		if err := rows.Scan(&item.ID, &item.CourseID, &item.Name, &item.SortIndex); err != nil {
			return nil, errors.Wrap(err, "scanning module")
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating modules")
	}
	return result, nil
}

func (repo *CatalogSQL) ListLessons(ctx context.Context, courseID string) ([]*LessonModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
    l.id, l.module_id, l.title, l.video_ref, l.duration, l.sort_index
FROM
    lesson l
        INNER JOIN
    course_module m ON (m.id = l.module_id)
WHERE
    m.course_id = $1
ORDER BY m.sort_index ASC, l.sort_index ASC
	`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	defer rows.Close()

	var result []*LessonModel
	for rows.Next() {
		var duration sql.NullInt64
		item := new(LessonModel)
		if err := rows.Scan(&item.ID, &item.ModuleID, &item.Title, &item.VideoRef, &duration, &item.SortIndex); err != nil {
			return nil, errors.Wrap(err, "scanning lesson")
		}
		if duration.Valid {
			d := int(duration.Int64)
			item.Duration = &d
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating lessons")
	}
	return result, nil
}
