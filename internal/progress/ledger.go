package progress

import (
	"context"
	"sync"
	"time"

	"go.elastic.co/apm"
)

// DefaultWriteThrottle minimum interval between two accepted position writes
const DefaultWriteThrottle = 8 * time.Second

// Ledger progress client of one course-view session.
//
// Position writes share a single throttle clock regardless of the lesson they
// target. The in-memory lookup only changes after a confirmed write.
type Ledger struct {
	repo     ProgressRepository
	cache    Cache
	userID   string
	courseID string
	throttle time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastWrite time.Time
	written   bool
	memo      Lookup
	memoVer   string // cache version memo was fetched under
	gen       uint64 // bumped on every invalidation
	closed    bool
}

// LedgerOption customize a Ledger
type LedgerOption func(*Ledger)

// WithClock replace time.Now
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithThrottle set the position write interval, non-positive values disable throttling
func WithThrottle(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.throttle = d
	}
}

// NewLedger create a ledger for userID on courseID, cache may be nil
func NewLedger(repo ProgressRepository, cache Cache, userID, courseID string, opts ...LedgerOption) *Ledger {
	if cache == nil {
		cache = NopCache{}
	}
	l := &Ledger{
		repo:     repo,
		cache:    cache,
		userID:   userID,
		courseID: courseID,
		throttle: DefaultWriteThrottle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lookup progress of the whole course.
//
// The memo is reused while the shared cache version is unchanged, so writes
// made by other sessions of the same user are picked up. A failed fetch
// returns an empty lookup along with the error, callers keep playing as if
// nothing was ever saved.
func (l *Ledger) Lookup(ctx context.Context) (Lookup, error) {
	version, versioned := l.cache.Version(l.userID, l.courseID)

	l.mu.Lock()
	if l.memo != nil && (!versioned || l.memoVer == version) {
		memo := l.memo
		l.mu.Unlock()
		return memo, nil
	}
	gen := l.gen
	l.mu.Unlock()

	if cached, ok := l.cache.Get(l.userID, l.courseID); ok {
		l.remember(gen, version, cached)
		return cached, nil
	}

	apmSpan, ctx := apm.StartSpan(ctx, "Ledger.Lookup", "service")
	defer apmSpan.End()

	lookup, err := l.repo.FindByCourse(ctx, l.userID, l.courseID)
	if err != nil {
		return make(Lookup), err
	}
	if lookup == nil {
		lookup = make(Lookup)
	}
	if l.remember(gen, version, lookup) && versioned {
		l.cache.Set(l.userID, l.courseID, version, lookup)
	}
	return lookup, nil
}

// remember stores a fetched lookup unless a write invalidated it meanwhile
func (l *Ledger) remember(gen uint64, version string, lookup Lookup) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen || l.closed {
		return false
	}
	l.memo, l.memoVer = lookup, version
	return true
}

// Peek last fetched lookup without I/O, empty before the first successful fetch
func (l *Ledger) Peek() Lookup {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.memo == nil {
		return make(Lookup)
	}
	return l.memo
}

// WritePosition save the playback position of a lesson.
//
// Calls arriving within the throttle window of the previous accepted write are
// dropped and report accepted == false. An accepted write that fails is not retried.
func (l *Ledger) WritePosition(ctx context.Context, lessonID string, seconds int, percent float64) (bool, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false, ErrLedgerClosed
	}
	now := l.now()
	if l.written && l.throttle > 0 && now.Sub(l.lastWrite) < l.throttle {
		l.mu.Unlock()
		return false, nil
	}
	l.lastWrite, l.written = now, true
	l.mu.Unlock()

	apmSpan, ctx := apm.StartSpan(ctx, "Ledger.WritePosition", "service")
	defer apmSpan.End()

	if seconds < 0 {
		seconds = 0
	}
	err := l.repo.UpsertPosition(ctx, &PositionUpdate{
		UserID:   l.userID,
		LessonID: lessonID,
		Position: seconds,
		Percent:  clampPercent(percent),
		At:       now.UnixNano() / int64(time.Millisecond),
	})
	if err != nil {
		return true, err
	}
	l.invalidate()
	return true, nil
}

// SetCompleted toggle completion, never throttled
func (l *Ledger) SetCompleted(ctx context.Context, lessonID string, completed bool) error {
	if l.isClosed() {
		return ErrLedgerClosed
	}

	apmSpan, ctx := apm.StartSpan(ctx, "Ledger.SetCompleted", "service")
	defer apmSpan.End()

	err := l.repo.UpsertCompletion(ctx, &CompletionUpdate{
		UserID:    l.userID,
		LessonID:  lessonID,
		Completed: completed,
		At:        l.now().UnixNano() / int64(time.Millisecond),
	})
	if err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// SetFavorite toggle favorite, never throttled
func (l *Ledger) SetFavorite(ctx context.Context, lessonID string, favorite bool) error {
	if l.isClosed() {
		return ErrLedgerClosed
	}

	apmSpan, ctx := apm.StartSpan(ctx, "Ledger.SetFavorite", "service")
	defer apmSpan.End()

	err := l.repo.UpsertFavorite(ctx, &FavoriteUpdate{
		UserID:   l.userID,
		LessonID: lessonID,
		Favorite: favorite,
	})
	if err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// Close stop accepting writes, in-flight writes are not awaited
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.memo = nil
}

func (l *Ledger) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Ledger) invalidate() {
	l.mu.Lock()
	l.memo = nil
	l.gen++
	l.mu.Unlock()
	l.cache.Invalidate(l.userID, l.courseID)
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
