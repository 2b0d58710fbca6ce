package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memoryRepo in-memory ProgressRepository
type memoryRepo struct {
	mu        sync.Mutex
	records   map[string]*RecordModel // lesson id -> record, single user and course
	positions []*PositionUpdate
	finds     int
	failWrite error
	failFind  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]*RecordModel)}
}

func (m *memoryRepo) record(lessonID string) *RecordModel {
	r, ok := m.records[lessonID]
	if !ok {
		r = &RecordModel{LessonID: lessonID}
		m.records[lessonID] = r
	}
	return r
}

func (m *memoryRepo) FindByCourse(ctx context.Context, userID, courseID string) (Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.failFind != nil {
		return nil, m.failFind
	}
	result := make(Lookup, len(m.records))
	for id, r := range m.records {
		copied := *r
		result[id] = &copied
	}
	return result, nil
}

func (m *memoryRepo) UpsertPosition(ctx context.Context, update *PositionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.positions = append(m.positions, update)
	r := m.record(update.LessonID)
	r.Position, r.Percent, r.UpdatedAt = update.Position, update.Percent, update.At
	return nil
}

func (m *memoryRepo) UpsertCompletion(ctx context.Context, update *CompletionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	r := m.record(update.LessonID)
	r.Completed, r.UpdatedAt = update.Completed, update.At
	if update.Completed {
		at := update.At
		r.Position, r.Percent, r.CompletedAt = EndPosition, 100, &at
	} else {
		r.Position, r.Percent, r.CompletedAt = 0, 0, nil
	}
	return nil
}

func (m *memoryRepo) UpsertFavorite(ctx context.Context, update *FavoriteUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.record(update.LessonID).Favorite = update.Favorite
	return nil
}

func newTestLedger(repo ProgressRepository, clock *fakeClock) *Ledger {
	return NewLedger(repo, nil, "u1", "go", WithClock(clock.Now))
}

func TestLedger_ThrottleWithinWindow(t *testing.T) {
	repo := newMemoryRepo()
	clock := newFakeClock()
	ledger := newTestLedger(repo, clock)
	ctx := context.Background()

	accepted := 0
	for i := 0; i < 10; i++ {
		ok, err := ledger.WritePosition(ctx, "b1", i, float64(i))
		require.NoError(t, err)
		if ok {
			accepted++
		}
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, repo.positions, 1)
}

func TestLedger_ThrottleSpacedWrites(t *testing.T) {
	repo := newMemoryRepo()
	clock := newFakeClock()
	ledger := newTestLedger(repo, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := ledger.WritePosition(ctx, "b1", i*9, 10)
		require.NoError(t, err)
		assert.True(t, ok, "write %d should be accepted", i)
		clock.Advance(9 * time.Second)
	}
	assert.Len(t, repo.positions, 5)
}

func TestLedger_ThrottleIsSharedAcrossLessons(t *testing.T) {
	repo := newMemoryRepo()
	clock := newFakeClock()
	ledger := newTestLedger(repo, clock)
	ctx := context.Background()

	ok, err := ledger.WritePosition(ctx, "b1", 30, 50)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	ok, err = ledger.WritePosition(ctx, "b2", 1, 1)
	require.NoError(t, err)
	assert.False(t, ok, "a lesson switch does not reset the window")

	clock.Advance(6 * time.Second)
	ok, err = ledger.WritePosition(ctx, "b2", 7, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_CompletionIsNotThrottled(t *testing.T) {
	repo := newMemoryRepo()
	clock := newFakeClock()
	ledger := newTestLedger(repo, clock)
	ctx := context.Background()

	_, err := ledger.WritePosition(ctx, "b1", 30, 50)
	require.NoError(t, err)

	require.NoError(t, ledger.SetCompleted(ctx, "b1", true))
	lookup, err := ledger.Lookup(ctx)
	require.NoError(t, err)
	rec := lookup.Get("b1")
	assert.True(t, rec.Completed)
	assert.Equal(t, EndPosition, rec.Position)
	assert.Equal(t, 100.0, rec.Percent)

	require.NoError(t, ledger.SetCompleted(ctx, "b1", false))
	lookup, err = ledger.Lookup(ctx)
	require.NoError(t, err)
	rec = lookup.Get("b1")
	assert.False(t, rec.Completed)
	assert.Equal(t, 0, rec.Position)
	assert.Nil(t, rec.CompletedAt)
}

func TestLedger_SuccessfulWriteRefreshesLookup(t *testing.T) {
	repo := newMemoryRepo()
	clock := newFakeClock()
	ledger := newTestLedger(repo, clock)
	ctx := context.Background()

	lookup, err := ledger.Lookup(ctx)
	require.NoError(t, err)
	assert.False(t, lookup.Has("b1"))

	_, err = ledger.Lookup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.finds, "second lookup is served from memory")

	_, err = ledger.WritePosition(ctx, "b1", 42, 7)
	require.NoError(t, err)
	lookup, err = ledger.Lookup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, lookup.Get("b1").Position)
	assert.Equal(t, 2, repo.finds)
}

func TestLedger_FailedWriteKeepsState(t *testing.T) {
	repo := newMemoryRepo()
	clock := newFakeClock()
	ledger := newTestLedger(repo, clock)
	ctx := context.Background()

	require.NoError(t, ledger.SetFavorite(ctx, "b1", true))
	before, err := ledger.Lookup(ctx)
	require.NoError(t, err)
	finds := repo.finds

	repo.failWrite = errors.New("write timeout")
	err = ledger.SetCompleted(ctx, "b1", true)
	assert.Error(t, err)

	after, err := ledger.Lookup(ctx)
	require.NoError(t, err)
	assert.Equal(t, finds, repo.finds, "a failed write does not invalidate")
	assert.False(t, after.Get("b1").Completed)
	assert.Equal(t, before, after)

	ok, err := ledger.WritePosition(ctx, "b1", 10, 1)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestLedger_LookupFailureDegrades(t *testing.T) {
	repo := newMemoryRepo()
	repo.failFind = errors.New("db down")
	ledger := newTestLedger(repo, newFakeClock())

	lookup, err := ledger.Lookup(context.Background())
	assert.Error(t, err)
	require.NotNil(t, lookup)
	rec := lookup.Get("b1")
	assert.Equal(t, 0, rec.Position)
	assert.False(t, rec.Completed)
	assert.False(t, rec.Favorite)
}

func TestLedger_Closed(t *testing.T) {
	repo := newMemoryRepo()
	ledger := newTestLedger(repo, newFakeClock())
	ledger.Close()
	ctx := context.Background()

	ok, err := ledger.WritePosition(ctx, "b1", 1, 1)
	assert.False(t, ok)
	assert.Equal(t, ErrLedgerClosed, err)
	assert.Equal(t, ErrLedgerClosed, ledger.SetCompleted(ctx, "b1", true))
	assert.Equal(t, ErrLedgerClosed, ledger.SetFavorite(ctx, "b1", true))
	assert.Empty(t, repo.positions)
}

func TestLookup_MostRecent(t *testing.T) {
	lookup := Lookup{
		"a": {LessonID: "a", UpdatedAt: 10},
		"b": {LessonID: "b", UpdatedAt: 30},
		"c": {LessonID: "c", UpdatedAt: 30},
	}
	id, ok := lookup.MostRecent([]string{"a", "b", "c"})
	require.True(t, ok)
	assert.Equal(t, "b", id)

	_, ok = lookup.MostRecent([]string{"x"})
	assert.False(t, ok)
}
