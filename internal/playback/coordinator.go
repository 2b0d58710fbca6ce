package playback

import "github.com/pot-code/coursesync/internal/progress"

// SeekInput everything the player target depends on
type SeekInput struct {
	LessonID    string
	PendingSeek *int
	IsPlaying   bool
	Record      progress.RecordModel // saved progress of LessonID, zero when never started
}

// ResolveSeekTarget second the player should start at or jump to.
//
// An explicit pending seek wins. Once the player runs the lesson the target is 0,
// a refreshed progress lookup must never rewind live playback. Otherwise the
// saved position is used, the end sentinel of completed lessons restarts at 0.
func ResolveSeekTarget(in SeekInput) int {
	if in.LessonID == "" {
		return 0
	}
	if in.PendingSeek != nil {
		return *in.PendingSeek
	}
	if in.IsPlaying {
		return 0
	}
	if in.Record.Position < 0 {
		return 0
	}
	return in.Record.Position
}
