package playback

import "errors"

var (
	// ErrUnknownLesson the lesson does not belong to the session's course
	ErrUnknownLesson = errors.New("Lesson is not part of this course")
	// ErrNoNeighbor there is no previous or next lesson
	ErrNoNeighbor = errors.New("No lesson in that direction")
	// ErrNoActiveLesson the session has no lesson bound to the player
	ErrNoActiveLesson = errors.New("No active lesson")
)

// Tab top-level view of the course page
type Tab string

const (
	TabPlayer    Tab = "Player"
	TabOverview  Tab = "Overview"
	TabResources Tab = "Resources"
)

// ParseTab map a tab name to a Tab, unknown names fall back to TabPlayer
func ParseTab(name string) Tab {
	switch Tab(name) {
	case TabOverview:
		return TabOverview
	case TabResources:
		return TabResources
	}
	return TabPlayer
}

// State playback state of one course-view visit
type State struct {
	ActiveLessonID string `json:"active_lesson_id"` // empty until the initial lesson is resolved
	PendingSeek    *int   `json:"pending_seek"`     // one-shot jump, cleared on acknowledgment
	IsPlaying      bool   `json:"is_playing"`
	Activation     uint64 `json:"activation"` // incremented on every lesson activation
	Tab            Tab    `json:"tab"`
}

// clone deep copy, PendingSeek is never shared with readers
func (s State) clone() State {
	if s.PendingSeek != nil {
		seek := *s.PendingSeek
		s.PendingSeek = &seek
	}
	return s
}

func intPtr(v int) *int {
	return &v
}
