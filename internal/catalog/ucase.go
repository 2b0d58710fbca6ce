package catalog

import (
	"context"
	"sync"

	"go.elastic.co/apm"
)

// CatalogUseCaseImpl resolves course catalogs and reuses the previous projection
// while the module/lesson sets keep the same signature
type CatalogUseCaseImpl struct {
	CatalogRepository CatalogRepository

	mu    sync.Mutex
	cache map[string]*Catalog // course id -> last built catalog
}

var _ CatalogUseCase = &CatalogUseCaseImpl{}

// NewCatalogUseCase ...
func NewCatalogUseCase(
	CatalogRepository CatalogRepository,
) *CatalogUseCaseImpl {
	return &CatalogUseCaseImpl{
		CatalogRepository: CatalogRepository,
		cache:             make(map[string]*Catalog),
	}
}

// Resolve load the ordered catalog of a course.
//
// ErrCourseNotFound is returned for unknown courses. Any other failure yields an
// empty catalog along with the error, callers render it as the empty state.
func (cu *CatalogUseCaseImpl) Resolve(ctx context.Context, courseID string) (*Catalog, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "CatalogUseCaseImpl.Resolve", "service")
	defer apmSpan.End()

	repo := cu.CatalogRepository
	course, err := repo.FindCourse(ctx, courseID)
	if err != nil {
		return EmptyCatalog(&CourseModel{ID: courseID}), err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	modules, err := repo.ListModules(ctx, courseID)
	if err != nil {
		return EmptyCatalog(course), err
	}
	lessons, err := repo.ListLessons(ctx, courseID)
	if err != nil {
		return EmptyCatalog(course), err
	}

	sig := Signature(modules, lessons)
	cu.mu.Lock()
	defer cu.mu.Unlock()
	if prev, ok := cu.cache[courseID]; ok && prev.Signature() == sig && prev.Course.Title == course.Title {
		return prev, nil
	}
	c := NewCatalog(course, modules, lessons)
	cu.cache[courseID] = c
	return c, nil
}
