package playback

import (
	"net/url"
	"testing"

	"github.com/pot-code/coursesync/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyEntry struct {
	mode HistoryMode
	link DeepLink
}

type recordingHistory struct {
	entries []historyEntry
}

func (h *recordingHistory) Push(link DeepLink) {
	h.entries = append(h.entries, historyEntry{HistoryPush, link})
}

func (h *recordingHistory) Replace(link DeepLink) {
	h.entries = append(h.entries, historyEntry{HistoryReplace, link})
}

func (h *recordingHistory) last() historyEntry {
	return h.entries[len(h.entries)-1]
}

func newTestSynchronizer() (*Synchronizer, *recordingHistory) {
	h := new(recordingHistory)
	return NewSynchronizer(testCatalog(), h), h
}

func TestSynchronizer_GoToLessonIsIdempotent(t *testing.T) {
	sz, h := newTestSynchronizer()

	require.NoError(t, sz.GoToLesson("b", nil))
	once := sz.State()
	pushes := len(h.entries)

	require.NoError(t, sz.GoToLesson("b", nil))
	assert.Equal(t, once, sz.State())
	assert.Len(t, h.entries, pushes, "repeated navigation writes no history")
}

func TestSynchronizer_GoToLesson(t *testing.T) {
	sz, h := newTestSynchronizer()

	require.NoError(t, sz.GoToLesson("b", intPtr(30)))
	st := sz.State()
	assert.Equal(t, "b", st.ActiveLessonID)
	require.NotNil(t, st.PendingSeek)
	assert.Equal(t, 30, *st.PendingSeek)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, uint64(1), st.Activation)

	entry := h.last()
	assert.Equal(t, HistoryPush, entry.mode)
	assert.Equal(t, "lesson=b&seek=30&tab=Player", entry.link.Encode())

	assert.True(t, sz.Tick(1))
	require.NoError(t, sz.GoToLesson("c", nil))
	st = sz.State()
	assert.Nil(t, st.PendingSeek, "a new lesson never inherits the previous seek")
	assert.False(t, st.IsPlaying)
	assert.Equal(t, uint64(2), st.Activation)

	assert.Equal(t, ErrUnknownLesson, sz.GoToLesson("zzz", nil))
	assert.Equal(t, "c", sz.State().ActiveLessonID)
}

func TestSynchronizer_StateIsACopy(t *testing.T) {
	sz, _ := newTestSynchronizer()
	require.NoError(t, sz.GoToLesson("a", intPtr(5)))

	st := sz.State()
	*st.PendingSeek = 99
	assert.Equal(t, 5, *sz.State().PendingSeek)
}

func TestSynchronizer_SeekOnce(t *testing.T) {
	sz, h := newTestSynchronizer()
	require.NoError(t, sz.GoToLesson("b", intPtr(42)))
	activation := sz.State().Activation

	assert.Equal(t, 42, sz.SeekTarget(nil))
	assert.True(t, sz.ClearPendingSeek(activation))
	assert.Nil(t, sz.State().PendingSeek)
	assert.True(t, sz.State().IsPlaying)
	assert.Equal(t, HistoryReplace, h.last().mode)
	assert.Equal(t, "lesson=b&tab=Player", h.last().link.Encode())

	entries := len(h.entries)
	assert.False(t, sz.ClearPendingSeek(activation), "second acknowledgment is a no-op")
	assert.Equal(t, 0, sz.SeekTarget(progress.Lookup{"b": {LessonID: "b", Position: 42}}))
	assert.Len(t, h.entries, entries)
}

func TestSynchronizer_StaleActivationIgnored(t *testing.T) {
	sz, _ := newTestSynchronizer()
	require.NoError(t, sz.GoToLesson("a", intPtr(10)))
	old := sz.State().Activation
	require.NoError(t, sz.GoToLesson("b", intPtr(20)))

	assert.False(t, sz.ClearPendingSeek(old))
	assert.False(t, sz.Tick(old))
	st := sz.State()
	require.NotNil(t, st.PendingSeek)
	assert.Equal(t, 20, *st.PendingSeek)
	assert.False(t, st.IsPlaying)
}

func TestSynchronizer_PreviousNext(t *testing.T) {
	sz, _ := newTestSynchronizer()
	assert.Equal(t, ErrNoActiveLesson, sz.Next())

	require.NoError(t, sz.GoToLesson("c", nil))
	require.NoError(t, sz.Next())
	st := sz.State()
	assert.Equal(t, "d", st.ActiveLessonID, "next crosses module boundaries")
	require.NotNil(t, st.PendingSeek)
	assert.Equal(t, 0, *st.PendingSeek)
	assert.Equal(t, ErrNoNeighbor, sz.Next())

	require.NoError(t, sz.GoToLesson("a", nil))
	assert.Equal(t, ErrNoNeighbor, sz.Previous())
	assert.Equal(t, "a", sz.State().ActiveLessonID)
}

func TestSynchronizer_SelectTab(t *testing.T) {
	sz, h := newTestSynchronizer()
	require.NoError(t, sz.GoToLesson("a", nil))

	assert.True(t, sz.SelectTab(TabResources))
	assert.Equal(t, HistoryPush, h.last().mode)
	assert.Equal(t, TabResources, h.last().link.Tab)

	entries := len(h.entries)
	assert.False(t, sz.SelectTab(TabResources))
	assert.Len(t, h.entries, entries)
}

func TestSynchronizer_ApplyLocationWritesNoHistory(t *testing.T) {
	sz, h := newTestSynchronizer()
	require.NoError(t, sz.GoToLesson("a", nil))
	entries := len(h.entries)

	sz.ApplyLocation(ParseDeepLink(url.Values{"tab": {"Overview"}, "lesson": {"c"}, "seek": {"15"}}))
	st := sz.State()
	assert.Equal(t, TabOverview, st.Tab)
	assert.Equal(t, "c", st.ActiveLessonID)
	require.NotNil(t, st.PendingSeek)
	assert.Equal(t, 15, *st.PendingSeek)

	sz.ApplyLocation(DeepLink{Tab: TabPlayer, LessonID: "zzz"})
	assert.Equal(t, "c", sz.State().ActiveLessonID)
	assert.Len(t, h.entries, entries)
}

func TestSynchronizer_DeepLinkRoundTrip(t *testing.T) {
	sz, h := newTestSynchronizer()
	lookup := progress.Lookup{"b": {LessonID: "b", Position: 300, UpdatedAt: 5}}

	q, err := url.ParseQuery("tab=Player&lesson=b&seek=42")
	require.NoError(t, err)

	sz.Mount(ParseDeepLink(q), lookup)
	assert.Equal(t, "b", sz.State().ActiveLessonID)
	assert.Equal(t, 42, sz.SeekTarget(lookup))
	assert.Empty(t, h.entries, "a deep-linked mount is not written back")

	assert.True(t, sz.ClearPendingSeek(sz.State().Activation))
	assert.Equal(t, 0, sz.SeekTarget(lookup))
	require.Len(t, h.entries, 1)
	assert.Equal(t, HistoryReplace, h.entries[0].mode)
	assert.Equal(t, "lesson=b&tab=Player", h.entries[0].link.Encode())
}

func TestSynchronizer_HeuristicRunsOnce(t *testing.T) {
	sz, h := newTestSynchronizer()
	recent := progress.Lookup{"c": {LessonID: "c", Position: 80, UpdatedAt: 9}}

	sz.Mount(DeepLink{Tab: TabPlayer}, recent)
	assert.Equal(t, "c", sz.State().ActiveLessonID)
	assert.Equal(t, 80, sz.SeekTarget(recent))
	require.Len(t, h.entries, 1)
	assert.Equal(t, HistoryReplace, h.entries[0].mode)

	require.NoError(t, sz.GoToLesson("a", nil))
	assert.False(t, sz.ResolveInitialLesson(DeepLink{}, recent))
	assert.Equal(t, "a", sz.State().ActiveLessonID)
}

func TestSynchronizer_EmptyCatalog(t *testing.T) {
	sz := NewSynchronizer(nil, nil)
	sz.Mount(DeepLink{Tab: TabOverview}, nil)

	st := sz.State()
	assert.Empty(t, st.ActiveLessonID)
	assert.Equal(t, TabOverview, st.Tab)
	assert.Equal(t, 0, sz.SeekTarget(nil))
	assert.Equal(t, ErrNoActiveLesson, sz.Next())
}
