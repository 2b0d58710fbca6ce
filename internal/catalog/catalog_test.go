package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCourse() (*CourseModel, []*ModuleModel, []*LessonModel) {
	course := &CourseModel{ID: "go", Title: "Go in practice"}
	modules := []*ModuleModel{
		{ID: "m2", CourseID: "go", Name: "Concurrency", SortIndex: 2},
		{ID: "m1", CourseID: "go", Name: "Basics", SortIndex: 1},
	}
	lessons := []*LessonModel{
		{ID: "c2", ModuleID: "m2", Title: "Select", SortIndex: 2},
		{ID: "b1", ModuleID: "m1", Title: "Types", SortIndex: 1},
		{ID: "c1", ModuleID: "m2", Title: "Goroutines", SortIndex: 1},
		{ID: "b2", ModuleID: "m1", Title: "Errors", SortIndex: 2},
		{ID: "orphan", ModuleID: "gone", Title: "Lost", SortIndex: 0},
	}
	return course, modules, lessons
}

func TestNewCatalog_Ordering(t *testing.T) {
	c := NewCatalog(testCourse())

	assert.Equal(t, []string{"b1", "b2", "c1", "c2"}, c.LessonIDs())
	require.Len(t, c.Modules, 2)
	assert.Equal(t, "m1", c.Modules[0].ID)
	assert.Equal(t, "m2", c.Modules[1].ID)
	assert.False(t, c.Contains("orphan"))
}

func TestCatalog_PreviousNext(t *testing.T) {
	c := NewCatalog(testCourse())
	ids := c.LessonIDs()

	for i, id := range ids {
		prev, hasPrev := c.Previous(id)
		next, hasNext := c.Next(id)
		if i == 0 {
			assert.False(t, hasPrev, "first lesson has no previous")
		} else {
			require.True(t, hasPrev)
			assert.Equal(t, ids[i-1], prev.ID)
		}
		if i == len(ids)-1 {
			assert.False(t, hasNext, "last lesson has no next")
		} else {
			require.True(t, hasNext)
			assert.Equal(t, ids[i+1], next.ID)
		}
	}

	_, ok := c.Next("unknown")
	assert.False(t, ok)
}

func TestCatalog_ModuleLookup(t *testing.T) {
	c := NewCatalog(testCourse())

	m, ok := c.Module("c1")
	require.True(t, ok)
	assert.Equal(t, "m2", m.ID)

	lessons := c.ModuleLessons("m1")
	require.Len(t, lessons, 2)
	assert.Equal(t, "b1", lessons[0].ID)
	assert.Equal(t, "b2", lessons[1].ID)
}

func TestCatalog_Empty(t *testing.T) {
	c := EmptyCatalog(&CourseModel{ID: "empty"})

	assert.True(t, c.Empty())
	_, ok := c.First()
	assert.False(t, ok)
	assert.NotNil(t, c.Lessons)
	assert.NotNil(t, c.Modules)
}

func TestSignature_IgnoresInputOrder(t *testing.T) {
	_, modules, lessons := testCourse()
	reversed := make([]*LessonModel, len(lessons))
	for i, l := range lessons {
		reversed[len(lessons)-1-i] = l
	}
	assert.Equal(t, Signature(modules, lessons), Signature(modules, reversed))

	moved := *lessons[0]
	moved.SortIndex = 9
	changed := append([]*LessonModel{&moved}, lessons[1:]...)
	assert.NotEqual(t, Signature(modules, lessons), Signature(modules, changed))
}

type fakeCatalogRepo struct {
	course  *CourseModel
	modules []*ModuleModel
	lessons []*LessonModel
	err     error
}

func (f *fakeCatalogRepo) FindCourse(ctx context.Context, courseID string) (*CourseModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.course == nil || f.course.ID != courseID {
		return nil, nil
	}
	return f.course, nil
}

func (f *fakeCatalogRepo) ListModules(ctx context.Context, courseID string) ([]*ModuleModel, error) {
	return f.modules, f.err
}

func (f *fakeCatalogRepo) ListLessons(ctx context.Context, courseID string) ([]*LessonModel, error) {
	return f.lessons, f.err
}

func TestCatalogUseCase_ReusesUnchangedProjection(t *testing.T) {
	course, modules, lessons := testCourse()
	repo := &fakeCatalogRepo{course: course, modules: modules, lessons: lessons}
	uc := NewCatalogUseCase(repo)

	first, err := uc.Resolve(context.Background(), "go")
	require.NoError(t, err)
	second, err := uc.Resolve(context.Background(), "go")
	require.NoError(t, err)
	assert.Same(t, first, second)

	repo.lessons = lessons[:2]
	third, err := uc.Resolve(context.Background(), "go")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, []string{"b1", "c2"}, third.LessonIDs())
}

func TestCatalogUseCase_Failures(t *testing.T) {
	uc := NewCatalogUseCase(&fakeCatalogRepo{})
	_, err := uc.Resolve(context.Background(), "missing")
	assert.Equal(t, ErrCourseNotFound, err)

	boom := errors.New("connection refused")
	uc = NewCatalogUseCase(&fakeCatalogRepo{err: boom})
	c, err := uc.Resolve(context.Background(), "go")
	assert.Equal(t, boom, err)
	require.NotNil(t, c)
	assert.True(t, c.Empty())
}
