package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pot-code/coursesync/internal/catalog"
	"github.com/pot-code/coursesync/internal/infrastructure/uuid"
	"github.com/pot-code/coursesync/internal/progress"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// ErrSessionNotFound no open session with that id for the user
var ErrSessionNotFound = errors.New("No such session")

// Manager owns the open course-view sessions
type Manager struct {
	Catalogs catalog.CatalogUseCase
	Progress progress.ProgressUseCase
	IDGen    uuid.Generator

	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager ...
func NewManager(
	Catalogs catalog.CatalogUseCase,
	Progress progress.ProgressUseCase,
	IDGen uuid.Generator,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		Catalogs: Catalogs,
		Progress: Progress,
		IDGen:    IDGen,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open start a course-view visit at link.
//
// An unknown course is catalog.ErrCourseNotFound. A catalog that fails to load
// opens an empty session rather than an error.
func (m *Manager) Open(ctx context.Context, userID, courseID string, link DeepLink) (*Session, Snapshot, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "Manager.Open", "service")
	defer apmSpan.End()

	c, err := m.Catalogs.Resolve(ctx, courseID)
	if err == catalog.ErrCourseNotFound {
		return nil, Snapshot{}, err
	}
	if err != nil {
		m.logger.Error("Failed to resolve catalog, opening empty session",
			zap.String("course.id", courseID), zap.Error(err))
	}
	if c == nil {
		c = catalog.EmptyCatalog(&catalog.CourseModel{ID: courseID})
	}

	id, err := m.IDGen.Generate()
	if err != nil {
		return nil, Snapshot{}, err
	}

	logger := m.logger.With(zap.String("session.id", id), zap.String("user.id", userID), zap.String("course.id", courseID))
	s := newSession(id, userID, courseID, c, m.Progress.OpenLedger(userID, courseID), logger, m.now)
	s.mount(ctx, link)

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, Snapshot{}, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	logger.Debug("Session opened", zap.String("session.query", snap.Query))
	return s, snap, nil
}

// Get an open session of userID
func (m *Manager) Get(userID, sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close tear down a session of userID
func (m *Manager) Close(userID, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	s.Close()
	m.logger.Debug("Session closed", zap.String("session.id", sessionID))
	return nil
}

// Len number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire close sessions unused for longer than idle, returns how many were closed
func (m *Manager) Expire(idle time.Duration) int {
	deadline := m.now().Add(-idle)

	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(deadline) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		m.logger.Info("Expired idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunJanitor expire idle sessions every interval until ctx is done
func (m *Manager) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	if idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Expire(idle)
		}
	}
}

// Shutdown close every session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
