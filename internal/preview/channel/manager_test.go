package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpen/backend/internal/domain/project"
)

func newTestManager(t *testing.T) (*Manager, *project.Manager, *project.Project) {
	t.Helper()
	projects := project.NewManager()
	p := projects.Create("demo", project.TemplateVanilla)
	m := NewManager(projects, testDebounce, nil, nil)
	return m, projects, p
}

func TestMountUnknownProject(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Mount("proj_missing")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestMountedSessionSyncsEdits(t *testing.T) {
	m, projects, p := newTestManager(t)

	s, err := m.Mount(p.ID)
	require.NoError(t, err)
	defer m.Unmount(s.ID)

	var mu sync.Mutex
	var updates []Update
	s.Attach(func(u Update) error {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
		return nil
	})

	s.Channel.BootstrapDocument()
	s.Channel.HandleReady()

	require.NoError(t, projects.ReplaceFiles(p.ID, []project.File{
		{Path: "index.html", Content: "<body><em>edited</em></body>"},
	}))
	time.Sleep(4 * testDebounce)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 2, "first paint plus one debounced edit")
	assert.Equal(t, "<em>edited</em>", updates[1].HTML)
}

func TestUnmountStopsSync(t *testing.T) {
	m, projects, p := newTestManager(t)

	s, err := m.Mount(p.ID)
	require.NoError(t, err)

	var mu sync.Mutex
	count := 0
	s.Attach(func(u Update) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	s.Channel.BootstrapDocument()
	s.Channel.HandleReady()

	require.True(t, m.Unmount(s.ID))
	assert.False(t, m.Unmount(s.ID))

	require.NoError(t, projects.ReplaceFiles(p.ID, []project.File{
		{Path: "a.js", Content: "x"},
	}))
	time.Sleep(4 * testDebounce)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count, "only the first paint; nothing after unmount")
}

func TestUnmountProjectRemovesAllSessions(t *testing.T) {
	m, _, p := newTestManager(t)

	s1, err := m.Mount(p.ID)
	require.NoError(t, err)
	s2, err := m.Mount(p.ID)
	require.NoError(t, err)

	m.UnmountProject(p.ID)

	_, ok := m.Get(s1.ID)
	assert.False(t, ok)
	_, ok = m.Get(s2.ID)
	assert.False(t, ok)
}

func TestStaleDetachKeepsFreshTransport(t *testing.T) {
	m, projects, p := newTestManager(t)

	s, err := m.Mount(p.ID)
	require.NoError(t, err)
	defer m.Unmount(s.ID)

	// First socket connects and goes live.
	oldGen := s.Attach(func(u Update) error { return nil })
	s.Channel.BootstrapDocument()
	s.Channel.HandleReady()

	// The frame reloads: the new socket attaches and completes its boot
	// cycle before the old handler has unwound.
	var mu sync.Mutex
	var updates []Update
	s.Attach(func(u Update) error {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
		return nil
	})
	s.Channel.BootstrapDocument()
	s.Channel.HandleReady()

	// The old handler's deferred detach runs last. It must not sever the
	// live transport or drop readiness.
	s.Detach(oldGen)
	assert.True(t, s.Channel.Ready())

	require.NoError(t, projects.ReplaceFiles(p.ID, []project.File{
		{Path: "index.html", Content: "<body><em>after reload</em></body>"},
	}))
	time.Sleep(4 * testDebounce)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, updates, "live transport still receives edits")
	assert.Equal(t, "<em>after reload</em>", updates[len(updates)-1].HTML)
}

func TestCurrentDetachSeversTransport(t *testing.T) {
	m, projects, p := newTestManager(t)

	s, err := m.Mount(p.ID)
	require.NoError(t, err)
	defer m.Unmount(s.ID)

	var mu sync.Mutex
	count := 0
	gen := s.Attach(func(u Update) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	s.Channel.BootstrapDocument()
	s.Channel.HandleReady()

	s.Detach(gen)
	assert.False(t, s.Channel.Ready())

	require.NoError(t, projects.ReplaceFiles(p.ID, []project.File{
		{Path: "a.js", Content: "x"},
	}))
	time.Sleep(4 * testDebounce)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count, "only the first paint; nothing after detach")
}

func TestSessionWithoutTransportIsSilent(t *testing.T) {
	m, _, p := newTestManager(t)

	s, err := m.Mount(p.ID)
	require.NoError(t, err)
	defer m.Unmount(s.ID)

	// No transport attached: ready still flips state, posting is a no-op.
	s.Channel.BootstrapDocument()
	s.Channel.HandleReady()
	assert.True(t, s.Channel.Ready())
}
