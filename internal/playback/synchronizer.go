package playback

import (
	"github.com/pot-code/coursesync/internal/catalog"
	"github.com/pot-code/coursesync/internal/progress"
)

// Synchronizer single owner of the playback State.
//
// GoToLesson and ClearPendingSeek are the only writers of the active lesson and
// the pending seek. User driven changes are pushed to History, locations coming
// from History are applied without being written back. Not safe for concurrent
// use, Session serializes access.
type Synchronizer struct {
	catalog  *catalog.Catalog
	history  History
	state    State
	resolved bool // initial lesson selection already ran
}

// NewSynchronizer create a Synchronizer over an ordered catalog
func NewSynchronizer(c *catalog.Catalog, history History) *Synchronizer {
	if c == nil {
		c = catalog.EmptyCatalog(nil)
	}
	if history == nil {
		history = HistoryFunc(func(HistoryMode, DeepLink) {})
	}
	return &Synchronizer{
		catalog: c,
		history: history,
		state:   State{Tab: TabPlayer},
	}
}

// State copy of the current state
func (s *Synchronizer) State() State {
	return s.state.clone()
}

// Catalog lessons the synchronizer navigates
func (s *Synchronizer) Catalog() *catalog.Catalog {
	return s.catalog
}

// Location the deep link reproducing the current view
func (s *Synchronizer) Location() DeepLink {
	st := s.state.clone()
	return DeepLink{
		Tab:      st.Tab,
		LessonID: st.ActiveLessonID,
		Seek:     st.PendingSeek,
	}
}

// GoToLesson activate lessonID, seek nil means resume.
//
// Repeating the call for the active lesson without a seek changes nothing.
func (s *Synchronizer) GoToLesson(lessonID string, seek *int) error {
	if !s.catalog.Contains(lessonID) {
		return ErrUnknownLesson
	}
	if s.goTo(lessonID, seek) {
		s.history.Push(s.Location())
	}
	return nil
}

func (s *Synchronizer) goTo(lessonID string, seek *int) bool {
	st := &s.state
	if st.ActiveLessonID == lessonID && seek == nil && st.PendingSeek == nil {
		return false
	}
	st.ActiveLessonID = lessonID
	st.PendingSeek = nil
	if seek != nil {
		st.PendingSeek = intPtr(*seek)
	}
	st.IsPlaying = false
	st.Activation++
	return true
}

// ClearPendingSeek acknowledge that the player applied the seek of activation.
//
// The acknowledgment also marks the lesson as playing, so later lookups never
// rewind it. Stale or repeated acknowledgments change nothing and report false.
func (s *Synchronizer) ClearPendingSeek(activation uint64) bool {
	st := &s.state
	if st.ActiveLessonID == "" || activation != st.Activation {
		return false
	}
	if st.PendingSeek == nil && st.IsPlaying {
		return false
	}
	hadSeek := st.PendingSeek != nil
	st.PendingSeek = nil
	st.IsPlaying = true
	if hadSeek {
		s.history.Replace(s.Location())
	}
	return true
}

// Tick record a player progress tick, false for ticks of an older activation
func (s *Synchronizer) Tick(activation uint64) bool {
	st := &s.state
	if st.ActiveLessonID == "" || activation != st.Activation {
		return false
	}
	st.IsPlaying = true
	return true
}

// SelectTab switch the top-level view
func (s *Synchronizer) SelectTab(tab Tab) bool {
	if s.state.Tab == tab {
		return false
	}
	s.state.Tab = tab
	s.history.Push(s.Location())
	return true
}

// Previous go to the lesson before the active one, starting at 0
func (s *Synchronizer) Previous() error {
	if s.state.ActiveLessonID == "" {
		return ErrNoActiveLesson
	}
	prev, ok := s.catalog.Previous(s.state.ActiveLessonID)
	if !ok {
		return ErrNoNeighbor
	}
	return s.GoToLesson(prev.ID, intPtr(0))
}

// Next go to the lesson after the active one, starting at 0
func (s *Synchronizer) Next() error {
	if s.state.ActiveLessonID == "" {
		return ErrNoActiveLesson
	}
	next, ok := s.catalog.Next(s.state.ActiveLessonID)
	if !ok {
		return ErrNoNeighbor
	}
	return s.GoToLesson(next.ID, intPtr(0))
}

// ApplyLocation feed a back/forward location into the state, never writes History.
//
// A lesson outside the course is ignored, a seek without a lesson targets the active lesson.
func (s *Synchronizer) ApplyLocation(link DeepLink) {
	if link.Tab != "" {
		s.state.Tab = link.Tab
	}
	switch {
	case link.LessonID != "":
		if s.catalog.Contains(link.LessonID) {
			s.goTo(link.LessonID, link.Seek)
		}
	case link.Seek != nil && s.state.ActiveLessonID != "":
		s.goTo(s.state.ActiveLessonID, link.Seek)
	}
}

// Mount apply the inbound location of a new visit and pick the initial lesson
func (s *Synchronizer) Mount(link DeepLink, lookup progress.Lookup) {
	if link.Tab != "" {
		s.state.Tab = link.Tab
	}
	s.ResolveInitialLesson(link, lookup)
}

// ResolveInitialLesson run the selection heuristic once while no lesson is active.
//
// A deep-linked pick keeps the inbound seek and is not written back, any other
// pick replaces the current history entry.
func (s *Synchronizer) ResolveInitialLesson(link DeepLink, lookup progress.Lookup) bool {
	if s.resolved || s.state.ActiveLessonID != "" {
		s.resolved = true
		return false
	}
	s.resolved = true

	pick, ok := SelectInitialLesson(s.catalog, link.LessonID, lookup)
	if !ok {
		return false
	}
	if pick == link.LessonID {
		s.goTo(pick, link.Seek)
		return true
	}
	s.goTo(pick, nil)
	s.history.Replace(s.Location())
	return true
}

// SeekTarget coordinator result for the active lesson
func (s *Synchronizer) SeekTarget(lookup progress.Lookup) int {
	st := s.state
	return ResolveSeekTarget(SeekInput{
		LessonID:    st.ActiveLessonID,
		PendingSeek: st.PendingSeek,
		IsPlaying:   st.IsPlaying,
		Record:      lookup.Get(st.ActiveLessonID),
	})
}
