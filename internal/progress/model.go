package progress

import (
	"context"
	"errors"
)

// EndPosition sentinel position stored for completed lessons
const EndPosition = -1

// ErrLedgerClosed the ledger belongs to a torn down session
var ErrLedgerClosed = errors.New("progress ledger is closed")

// RecordModel saved progress of one user on one lesson
type RecordModel struct {
	LessonID    string  `json:"lesson_id"`
	Position    int     `json:"position"` // seconds, EndPosition once completed
	Percent     float64 `json:"percent"`
	Completed   bool    `json:"completed"`
	CompletedAt *int64  `json:"completed_at,omitempty"` // milliseconds
	Favorite    bool    `json:"favorite"`
	UpdatedAt   int64   `json:"updated_at"` // milliseconds
}

// Lookup progress records of a course keyed by lesson id
type Lookup map[string]*RecordModel

// Get the record of a lesson, a lesson never started yields the zero record
func (l Lookup) Get(lessonID string) RecordModel {
	if r, ok := l[lessonID]; ok && r != nil {
		return *r
	}
	return RecordModel{LessonID: lessonID}
}

// Has reports whether a record exists for lessonID
func (l Lookup) Has(lessonID string) bool {
	r, ok := l[lessonID]
	return ok && r != nil
}

// MostRecent lesson with the latest UpdatedAt among candidates, ties go to the earlier candidate
func (l Lookup) MostRecent(candidates []string) (string, bool) {
	var (
		best   string
		bestTS int64
		found  bool
	)
	for _, id := range candidates {
		r, ok := l[id]
		if !ok || r == nil {
			continue
		}
		if !found || r.UpdatedAt > bestTS {
			best, bestTS, found = id, r.UpdatedAt, true
		}
	}
	return best, found
}

// PositionUpdate a playback position write
type PositionUpdate struct {
	UserID   string
	LessonID string
	Position int
	Percent  float64
	At       int64 // milliseconds
}

// CompletionUpdate a completion toggle write
type CompletionUpdate struct {
	UserID    string
	LessonID  string
	Completed bool
	At        int64 // milliseconds
}

// FavoriteUpdate a favorite toggle write
type FavoriteUpdate struct {
	UserID   string
	LessonID string
	Favorite bool
}

type ProgressRepository interface {
	FindByCourse(ctx context.Context, userID, courseID string) (Lookup, error)
	UpsertPosition(ctx context.Context, update *PositionUpdate) error
	UpsertCompletion(ctx context.Context, update *CompletionUpdate) error
	UpsertFavorite(ctx context.Context, update *FavoriteUpdate) error
}

// Cache lookup cache keyed by (user, course).
//
// Every Invalidate moves the entry to a new version. Set records the version
// read before the repository fetch, and Get only serves entries stored under
// the current version, so a fetch racing with a write is never served.
type Cache interface {
	Get(userID, courseID string) (Lookup, bool)
	// Version current version of the entry, false when it cannot be read
	Version(userID, courseID string) (string, bool)
	Set(userID, courseID, version string, lookup Lookup)
	Invalidate(userID, courseID string)
}
