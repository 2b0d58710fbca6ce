package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/pot-code/coursesync/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain buffered events without blocking
func drain(events <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func openTestSession(t *testing.T, store *progressStore, link DeepLink) *Session {
	t.Helper()
	s, _, err := newTestManager(store).Open(context.Background(), "u1", "go", link)
	require.NoError(t, err)
	return s
}

func TestSession_NavigatePublishesHistoryThenSeek(t *testing.T) {
	s := openTestSession(t, newProgressStore(), DeepLink{LessonID: "a"})
	events, cancel := s.Subscribe()
	defer cancel()

	snap, err := s.Navigate(context.Background(), "c", intPtr(12))
	require.NoError(t, err)

	got := drain(events)
	require.Len(t, got, 2)
	assert.Equal(t, MessageHistory, got[0].Type)
	assert.Equal(t, HistoryPush, got[0].Mode)
	assert.Equal(t, "lesson=c&seek=12&tab=Player", got[0].Query)

	assert.Equal(t, MessageSeek, got[1].Type)
	assert.Equal(t, snap.State.Activation, got[1].Activation)
	assert.Equal(t, "vid-c", got[1].VideoRef)
	require.NotNil(t, got[1].Position)
	assert.Equal(t, 12, *got[1].Position)
}

func TestSession_NavigateUnknownLesson(t *testing.T) {
	s := openTestSession(t, newProgressStore(), DeepLink{LessonID: "a"})

	snap, err := s.Navigate(context.Background(), "zzz", nil)
	assert.Equal(t, ErrUnknownLesson, err)
	assert.Equal(t, "a", snap.Highlight)
}

func TestSession_AckSeekAndPendingCommand(t *testing.T) {
	s := openTestSession(t, newProgressStore(), DeepLink{LessonID: "b", Seek: intPtr(42)})
	ctx := context.Background()

	cmd := s.PendingCommand(ctx)
	require.NotNil(t, cmd)
	assert.Equal(t, 42, cmd.Position)

	events, cancel := s.Subscribe()
	defer cancel()
	assert.True(t, s.AckSeek(cmd.Activation))
	assert.False(t, s.AckSeek(cmd.Activation))
	assert.Nil(t, s.PendingCommand(ctx), "a reconnecting player is not rewound")

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, HistoryReplace, got[0].Mode)
	assert.Equal(t, "lesson=b&tab=Player", got[0].Query)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Player.Position)
}

func TestSession_TickWritesProgress(t *testing.T) {
	store := newProgressStore()
	s := openTestSession(t, store, DeepLink{LessonID: "b"})
	ctx := context.Background()
	events, cancel := s.Subscribe()
	defer cancel()

	activation := s.PendingCommand(ctx).Activation
	s.Tick(ctx, activation, 30, 40)

	lookup, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, lookup.Get("b").Position)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, MessageProgress, got[0].Type)
	assert.Equal(t, "b", got[0].LessonID)

	_, err = s.Next(ctx)
	require.NoError(t, err)
	s.Tick(ctx, activation, 99, 99)
	assert.Equal(t, 1, store.positions, "ticks of a previous activation are dropped")
}

func TestSession_TickFailureNotifies(t *testing.T) {
	store := newProgressStore()
	s := openTestSession(t, store, DeepLink{LessonID: "b"})
	ctx := context.Background()
	events, cancel := s.Subscribe()
	defer cancel()

	store.failWrite = errors.New("disk full")
	s.Tick(ctx, s.PendingCommand(ctx).Activation, 30, 40)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, MessageNotice, got[0].Type)
	assert.Equal(t, NoticeWarn, got[0].Level)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.State.IsPlaying, "playback continues after a failed save")
}

func TestSession_ToggleCompletion(t *testing.T) {
	s := openTestSession(t, newProgressStore(), DeepLink{LessonID: "a"})
	ctx := context.Background()

	record, err := s.SetCompleted(ctx, "a", true)
	require.NoError(t, err)
	assert.True(t, record.Completed)
	assert.Equal(t, progress.EndPosition, record.Position)

	record, err = s.SetFavorite(ctx, "a", true)
	require.NoError(t, err)
	assert.True(t, record.Favorite)
	assert.True(t, record.Completed)

	_, err = s.SetCompleted(ctx, "zzz", true)
	assert.Equal(t, ErrUnknownLesson, err)
}

func TestSession_ToggleFailureKeepsRecord(t *testing.T) {
	store := newProgressStore()
	store.put("u1", progress.RecordModel{LessonID: "a", Position: 55, UpdatedAt: 10})
	s := openTestSession(t, store, DeepLink{LessonID: "a"})
	ctx := context.Background()
	events, cancel := s.Subscribe()
	defer cancel()

	store.failWrite = errors.New("timeout")
	record, err := s.SetCompleted(ctx, "a", true)
	assert.Error(t, err)
	assert.False(t, record.Completed)
	assert.Equal(t, 55, record.Position)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, MessageNotice, got[0].Type)
	assert.Equal(t, NoticeError, got[0].Level)
}

func TestSession_SelectTabAndLocation(t *testing.T) {
	s := openTestSession(t, newProgressStore(), DeepLink{LessonID: "a"})
	ctx := context.Background()
	events, cancel := s.Subscribe()
	defer cancel()

	snap, err := s.SelectTab(ctx, TabOverview)
	require.NoError(t, err)
	assert.Equal(t, "lesson=a&tab=Overview", snap.Query)
	require.Len(t, drain(events), 1)

	snap, err = s.ApplyLocation(ctx, DeepLink{Tab: TabPlayer, LessonID: "d"})
	require.NoError(t, err)
	assert.Equal(t, "d", snap.Highlight)
	assert.Equal(t, "c", snap.PreviousID)
	assert.Empty(t, snap.NextID)

	got := drain(events)
	require.Len(t, got, 1, "a location change only announces the new seek")
	assert.Equal(t, MessageSeek, got[0].Type)
}

func TestSession_SubscribeAfterClose(t *testing.T) {
	s := openTestSession(t, newProgressStore(), DeepLink{})
	s.Close()
	s.Close()

	events, cancel := s.Subscribe()
	defer cancel()
	_, ok := <-events
	assert.False(t, ok)
	assert.False(t, s.AckSeek(1))
}
