package playback

import (
	"context"
	"sync"
	"time"

	"github.com/pot-code/coursesync/internal/catalog"
	"github.com/pot-code/coursesync/internal/progress"
	"go.uber.org/zap"
)

// subscriber channel capacity, events beyond it are dropped for that subscriber
const eventBuffer = 32

// Snapshot read projection of a session, what the client renders
type Snapshot struct {
	SessionID  string       `json:"session_id"`
	CourseID   string       `json:"course_id"`
	State      State        `json:"state"`
	Query      string       `json:"query"`     // address bar
	Highlight  string       `json:"highlight"` // sidebar selected lesson
	Player     *SeekCommand `json:"player"`    // nil without an active lesson
	PreviousID string       `json:"previous_id,omitempty"`
	NextID     string       `json:"next_id,omitempty"`
	Empty      bool         `json:"empty"`
}

// Session one course-view visit.
//
// All state changes go through the embedded Synchronizer under mu, progress I/O
// runs outside of it. A closed session drops every further write.
type Session struct {
	ID       string
	UserID   string
	CourseID string

	sync   *Synchronizer
	ledger *progress.Ledger
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func newSession(id, userID, courseID string, c *catalog.Catalog, ledger *progress.Ledger, logger *zap.Logger, now func() time.Time) *Session {
	s := &Session{
		ID:       id,
		UserID:   userID,
		CourseID: courseID,
		ledger:   ledger,
		logger:   logger,
		now:      now,
		lastSeen: now(),
		subs:     make(map[int]chan Event),
	}
	s.sync = NewSynchronizer(c, s.history())
	return s
}

// history publish address bar writes to subscribers
func (s *Session) history() History {
	return HistoryFunc(func(mode HistoryMode, link DeepLink) {
		s.publish(historyEvent(mode, link))
	})
}

// lookup progress of the course, failures degrade to nothing saved
func (s *Session) lookup(ctx context.Context) progress.Lookup {
	lookup, err := s.ledger.Lookup(ctx)
	if err != nil {
		s.logger.Warn("Failed to load progress, continuing without it", zap.Error(err))
	}
	return lookup
}

func (s *Session) mount(ctx context.Context, link DeepLink) {
	lookup := s.lookup(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync.Mount(link, lookup)
}

// mutate run fn against the synchronizer, a new activation is announced to the player
func (s *Session) mutate(ctx context.Context, fn func(*Synchronizer) error) (Snapshot, error) {
	lookup := s.lookup(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionNotFound
	}
	s.lastSeen = s.now()

	before := s.sync.state.Activation
	if err := fn(s.sync); err != nil {
		return s.snapshot(lookup), err
	}
	snap := s.snapshot(lookup)
	if s.sync.state.Activation != before && snap.Player != nil {
		s.publish(snap.Player.Event())
	}
	return snap, nil
}

func (s *Session) snapshot(lookup progress.Lookup) Snapshot {
	st := s.sync.State()
	c := s.sync.Catalog()
	snap := Snapshot{
		SessionID: s.ID,
		CourseID:  s.CourseID,
		State:     st,
		Query:     s.sync.Location().Encode(),
		Highlight: st.ActiveLessonID,
		Empty:     c.Empty(),
	}
	if st.ActiveLessonID == "" {
		return snap
	}
	if lesson, ok := c.Lesson(st.ActiveLessonID); ok {
		snap.Player = &SeekCommand{
			Activation: st.Activation,
			LessonID:   lesson.ID,
			VideoRef:   lesson.VideoRef,
			Position:   s.sync.SeekTarget(lookup),
		}
	}
	if prev, ok := c.Previous(st.ActiveLessonID); ok {
		snap.PreviousID = prev.ID
	}
	if next, ok := c.Next(st.ActiveLessonID); ok {
		snap.NextID = next.ID
	}
	return snap
}

// Snapshot current projection of the session
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, func(*Synchronizer) error { return nil })
}

// PendingCommand seek the player still has to apply, nil once acknowledged
func (s *Session) PendingCommand(ctx context.Context) *SeekCommand {
	lookup := s.lookup(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.sync.state
	if s.closed || (st.IsPlaying && st.PendingSeek == nil) {
		return nil
	}
	return s.snapshot(lookup).Player
}

// Navigate activate lessonID, seek nil resumes from the saved position
func (s *Session) Navigate(ctx context.Context, lessonID string, seek *int) (Snapshot, error) {
	return s.mutate(ctx, func(sz *Synchronizer) error {
		return sz.GoToLesson(lessonID, seek)
	})
}

// Previous go to the previous lesson from its start
func (s *Session) Previous(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, func(sz *Synchronizer) error {
		return sz.Previous()
	})
}

// Next go to the next lesson from its start
func (s *Session) Next(ctx context.Context) (Snapshot, error) {
	return s.mutate(ctx, func(sz *Synchronizer) error {
		return sz.Next()
	})
}

// SelectTab switch the top-level view
func (s *Session) SelectTab(ctx context.Context, tab Tab) (Snapshot, error) {
	return s.mutate(ctx, func(sz *Synchronizer) error {
		sz.SelectTab(tab)
		return nil
	})
}

// ApplyLocation back/forward navigation of the client
func (s *Session) ApplyLocation(ctx context.Context, link DeepLink) (Snapshot, error) {
	return s.mutate(ctx, func(sz *Synchronizer) error {
		sz.ApplyLocation(link)
		return nil
	})
}

// AckSeek the player applied the seek of activation
func (s *Session) AckSeek(activation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.lastSeen = s.now()
	return s.sync.ClearPendingSeek(activation)
}

// Tick player progress, saved through the throttled ledger.
//
// Write failures are reported to subscribers and never interrupt playback.
func (s *Session) Tick(ctx context.Context, activation uint64, second int, percent float64) {
	s.mu.Lock()
	if s.closed || !s.sync.Tick(activation) {
		s.mu.Unlock()
		return
	}
	s.lastSeen = s.now()
	lessonID := s.sync.state.ActiveLessonID
	s.mu.Unlock()

	accepted, err := s.ledger.WritePosition(ctx, lessonID, second, percent)
	switch {
	case err == progress.ErrLedgerClosed:
	case err != nil:
		s.logger.Warn("Failed to save playback position",
			zap.String("lesson.id", lessonID), zap.Int("position", second), zap.Error(err))
		s.publish(noticeEvent(NoticeWarn, "Playback progress could not be saved"))
	case accepted:
		s.publish(progressEvent(lessonID))
	}
}

// SetCompleted toggle completion of a lesson, returns the saved record
func (s *Session) SetCompleted(ctx context.Context, lessonID string, completed bool) (progress.RecordModel, error) {
	if err := s.checkLesson(lessonID); err != nil {
		return progress.RecordModel{}, err
	}
	if err := s.ledger.SetCompleted(ctx, lessonID, completed); err != nil {
		return s.failedToggle(ctx, lessonID, "Failed to update lesson completion", err)
	}
	s.publish(progressEvent(lessonID))
	return s.lookup(ctx).Get(lessonID), nil
}

// SetFavorite toggle favorite of a lesson, returns the saved record
func (s *Session) SetFavorite(ctx context.Context, lessonID string, favorite bool) (progress.RecordModel, error) {
	if err := s.checkLesson(lessonID); err != nil {
		return progress.RecordModel{}, err
	}
	if err := s.ledger.SetFavorite(ctx, lessonID, favorite); err != nil {
		return s.failedToggle(ctx, lessonID, "Failed to update lesson favorite", err)
	}
	s.publish(progressEvent(lessonID))
	return s.lookup(ctx).Get(lessonID), nil
}

// failedToggle report err, the returned record is the pre-toggle state
func (s *Session) failedToggle(ctx context.Context, lessonID, message string, err error) (progress.RecordModel, error) {
	if err == progress.ErrLedgerClosed {
		return progress.RecordModel{}, ErrSessionNotFound
	}
	s.logger.Error(message, zap.String("lesson.id", lessonID), zap.Error(err))
	s.publish(noticeEvent(NoticeError, message))
	return s.lookup(ctx).Get(lessonID), err
}

func (s *Session) checkLesson(lessonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionNotFound
	}
	s.lastSeen = s.now()
	if !s.sync.Catalog().Contains(lessonID) {
		return ErrUnknownLesson
	}
	return nil
}

// Progress lookup of the session's course
func (s *Session) Progress(ctx context.Context) (progress.Lookup, error) {
	return s.ledger.Lookup(ctx)
}

// Subscribe receive outbound player events until cancel or Close
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan Event, eventBuffer)
	if s.subs == nil {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) publish(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			s.logger.Debug("Dropping player event for slow subscriber", zap.String("event.type", string(e.Type)))
		}
	}
}

// idleSince last time the session was used
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close tear the session down, in-flight writes are not awaited
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.ledger.Close()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subs = nil
}
