package project

import (
	"fmt"
	"sync"
	"time"

	"github.com/quickpen/backend/internal/infrastructure/monitoring"
	"github.com/quickpen/backend/internal/shared/id"
)

// ErrNotFound is returned when a project ID does not resolve.
var ErrNotFound = fmt.Errorf("project not found")

// Subscriber receives file-set-changed notifications for one project.
// The callback carries no payload: consumers re-read the live file set,
// never a snapshot taken at notification time.
type Subscriber func()

// Manager owns all projects in memory and fans out change notifications.
type Manager struct {
	mu          sync.RWMutex
	projects    map[string]*Project // Protected by mu
	subscribers map[string]map[int]Subscriber
	nextSubID   int
	metrics     *monitoring.Metrics
}

// NewManager creates a project manager
func NewManager() *Manager {
	return &Manager{
		projects:    make(map[string]*Project),
		subscribers: make(map[string]map[int]Subscriber),
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create scaffolds a new project from a template
func (m *Manager) Create(name, template string) *Project {
	now := time.Now()
	p := &Project{
		ID:        id.NewProjectID().String(),
		Name:      name,
		Template:  template,
		Files:     Scaffold(template),
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.projects[p.ID] = p
	count := len(m.projects)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncProjectsTotal()
		m.metrics.SetProjectsActive(count)
	}

	return p
}

// Get returns a project by ID
func (m *Manager) Get(projectID string) (*Project, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[projectID]
	return p, ok
}

// List returns all projects
func (m *Manager) List() []*Project {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Project, 0, len(m.projects))
	for _, p := range m.projects {
		result = append(result, p)
	}
	return result
}

// Delete removes a project and drops its subscribers
func (m *Manager) Delete(projectID string) bool {
	m.mu.Lock()
	_, ok := m.projects[projectID]
	delete(m.projects, projectID)
	delete(m.subscribers, projectID)
	count := len(m.projects)
	m.mu.Unlock()

	if ok && m.metrics != nil {
		m.metrics.SetProjectsActive(count)
	}
	return ok
}

// ReplaceFiles installs the authoritative file set for a project. The
// supplied slice is complete, not a diff; advisory languages are re-derived.
// Subscribers are notified after the new set is visible.
func (m *Manager) ReplaceFiles(projectID string, files []File) error {
	normalized := make([]File, len(files))
	for i, f := range files {
		normalized[i] = File{
			Path:     f.Path,
			Content:  f.Content,
			Language: DetectLanguage(f.Path, f.Content),
		}
	}

	m.mu.Lock()
	p, ok := m.projects[projectID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	p.Files = normalized
	p.UpdatedAt = time.Now()

	subs := make([]Subscriber, 0, len(m.subscribers[projectID]))
	for _, sub := range m.subscribers[projectID] {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncFileSetUpdates()
	}

	for _, sub := range subs {
		sub()
	}
	return nil
}

// Files returns the current file set for a project. The returned slice is a
// copy; the stored set is never handed out for mutation.
func (m *Manager) Files(projectID string) []File {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[projectID]
	if !ok {
		return nil
	}
	files := make([]File, len(p.Files))
	copy(files, p.Files)
	return files
}

// Subscribe registers a file-set-changed callback for a project. The
// returned function cancels the subscription.
func (m *Manager) Subscribe(projectID string, sub Subscriber) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscribers[projectID] == nil {
		m.subscribers[projectID] = make(map[int]Subscriber)
	}
	subID := m.nextSubID
	m.nextSubID++
	m.subscribers[projectID][subID] = sub

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers[projectID], subID)
	}
}

// Stats returns manager statistics
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subCount := 0
	for _, subs := range m.subscribers {
		subCount += len(subs)
	}
	return map[string]interface{}{
		"projects":    len(m.projects),
		"subscribers": subCount,
	}
}
