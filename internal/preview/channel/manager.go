package channel

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quickpen/backend/internal/domain/project"
	"github.com/quickpen/backend/internal/infrastructure/logging"
	"github.com/quickpen/backend/internal/infrastructure/monitoring"
	"github.com/quickpen/backend/internal/shared/id"
)

// Session is one mounted preview surface. It owns its channel exclusively:
// no two sessions address the same sandbox. The transport (the sandbox's
// socket) attaches after mount and may come and go across boot cycles.
type Session struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`

	Channel *Channel `json:"-"`

	transportMu  sync.RWMutex
	transport    Poster
	transportGen uint64

	cancelSub func()
}

// Attach installs the sandbox transport for the current boot cycle and
// returns a handle identifying this attachment.
func (s *Session) Attach(post Poster) uint64 {
	s.transportMu.Lock()
	s.transportGen++
	gen := s.transportGen
	s.transport = post
	s.transportMu.Unlock()
	return gen
}

// Detach removes the transport and drops the channel's readiness, so that
// nothing is posted into a torn-down sandbox. A stale handle is a no-op:
// a reloading frame attaches its new socket before the old handler
// unwinds, and the old socket's teardown must not sever the live one.
func (s *Session) Detach(gen uint64) {
	s.transportMu.Lock()
	if gen != s.transportGen {
		s.transportMu.Unlock()
		return
	}
	s.transport = nil
	s.transportMu.Unlock()
	s.Channel.Detach()
}

// post forwards an update to the attached transport. With no sandbox
// attached this is a silent no-op.
func (s *Session) post(u Update) error {
	s.transportMu.RLock()
	transport := s.transport
	s.transportMu.RUnlock()

	if transport == nil {
		return nil
	}
	return transport(u)
}

// Manager tracks mounted preview sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	projects *project.Manager
	debounce time.Duration

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewManager creates a preview session manager.
func NewManager(projects *project.Manager, debounce time.Duration, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		projects: projects,
		debounce: debounce,
		logger:   logger,
		metrics:  metrics,
	}
}

// Mount creates a preview session for a project: a fresh channel wired to
// the project's live file set and subscribed to its change signal.
func (m *Manager) Mount(projectID string) (*Session, error) {
	if _, ok := m.projects.Get(projectID); !ok {
		return nil, project.ErrNotFound
	}

	s := &Session{
		ID:        id.NewPreviewID().String(),
		ProjectID: projectID,
		CreatedAt: time.Now(),
	}

	source := func() []project.File { return m.projects.Files(projectID) }
	s.Channel = New(source, s.post,
		WithDebounce(m.debounce),
		WithLogger(m.logger),
		WithMetrics(m.metrics),
	)
	s.cancelSub = m.projects.Subscribe(projectID, s.Channel.NotifyChange)

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetPreviewsActive(count)
	}
	m.logger.Info("preview mounted",
		zap.String("preview_id", s.ID),
		zap.String("project_id", projectID),
	)
	return s, nil
}

// Get returns a session by ID.
func (m *Manager) Get(previewID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[previewID]
	return s, ok
}

// Unmount destroys a session: the change subscription is cancelled and the
// channel closed, so no message is posted after teardown.
func (m *Manager) Unmount(previewID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[previewID]
	delete(m.sessions, previewID)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return false
	}

	s.cancelSub()
	s.Channel.Close()

	if m.metrics != nil {
		m.metrics.SetPreviewsActive(count)
	}
	m.logger.Info("preview unmounted", zap.String("preview_id", previewID))
	return true
}

// UnmountProject removes every session mounted on a project. Used when the
// project itself is deleted.
func (m *Manager) UnmountProject(projectID string) {
	m.mu.RLock()
	var ids []string
	for _, s := range m.sessions {
		if s.ProjectID == projectID {
			ids = append(ids, s.ID)
		}
	}
	m.mu.RUnlock()

	for _, sid := range ids {
		m.Unmount(sid)
	}
}

// Stats returns manager statistics.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"sessions": len(m.sessions),
	}
}
