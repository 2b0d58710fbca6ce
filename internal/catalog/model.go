package catalog

import (
	"context"
	"errors"
)

// ErrCourseNotFound the course does not exist
var ErrCourseNotFound = errors.New("No such course")

type CourseModel struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ModuleModel struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id"`
	Name      string `json:"name"`
	SortIndex int    `json:"sort_index"`
}

type LessonModel struct {
	ID        string `json:"id"`
	ModuleID  string `json:"module_id"`
	Title     string `json:"title"`
	VideoRef  string `json:"video_ref"`
	Duration  *int   `json:"duration"` // seconds, unknown when nil
	SortIndex int    `json:"sort_index"`
}

type CatalogRepository interface {
	FindCourse(ctx context.Context, courseID string) (*CourseModel, error)
	ListModules(ctx context.Context, courseID string) ([]*ModuleModel, error)
	ListLessons(ctx context.Context, courseID string) ([]*LessonModel, error)
}

type CatalogUseCase interface {
	Resolve(ctx context.Context, courseID string) (*Catalog, error)
}
