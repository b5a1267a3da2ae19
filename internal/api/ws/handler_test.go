package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpen/backend/internal/domain/project"
	"github.com/quickpen/backend/internal/preview/channel"
)

const testDebounce = 20 * time.Millisecond

func newTestServer(t *testing.T) (*httptest.Server, *project.Manager, *channel.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	projects := project.NewManager()
	sessions := channel.NewManager(projects, testDebounce, nil, nil)
	h := NewHandler(sessions, nil, nil)

	r := gin.New()
	r.GET("/preview/:id/channel", h.HandleChannel)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, projects, sessions
}

func dial(t *testing.T, srv *httptest.Server, previewID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/preview/" + previewID + "/channel"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) channel.Update {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := channel.DecodeEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, channel.TypeUpdate, env.Type)

	var u channel.Update
	require.NoError(t, sonic.Unmarshal(data, &u))
	return u
}

func TestChannelSyncsAfterReady(t *testing.T) {
	srv, projects, sessions := newTestServer(t)

	p := projects.Create("demo", project.TemplateVanilla)
	require.NoError(t, projects.ReplaceFiles(p.ID, []project.File{
		{Path: "index.html", Content: "<body><h1>Hi</h1></body>"},
		{Path: "styles.css", Content: "h1 { color: red }"},
	}))
	s, err := sessions.Mount(p.ID)
	require.NoError(t, err)

	// The frame pulls the bootstrap document before opening the channel.
	s.Channel.BootstrapDocument()

	conn := dial(t, srv, s.ID)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ready"}))

	// First paint arrives immediately on ready.
	u := readUpdate(t, conn)
	assert.Equal(t, "<h1>Hi</h1>", u.HTML)
	assert.Equal(t, "h1 { color: red }", u.CSS)

	// A live edit arrives after the debounce window.
	require.NoError(t, projects.ReplaceFiles(p.ID, []project.File{
		{Path: "index.html", Content: "<body><h1>Bye</h1></body>"},
	}))
	u = readUpdate(t, conn)
	assert.Equal(t, "<h1>Bye</h1>", u.HTML)
	assert.Equal(t, "", u.CSS)
}

func TestChannelUnknownSession(t *testing.T) {
	srv, _, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/preview/prev_missing/channel"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestChannelIgnoresMalformedMessages(t *testing.T) {
	srv, projects, sessions := newTestServer(t)

	p := projects.Create("demo", project.TemplateVanilla)
	s, err := sessions.Mount(p.ID)
	require.NoError(t, err)
	s.Channel.BootstrapDocument()

	conn := dial(t, srv, s.ID)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ready"}))

	u := readUpdate(t, conn)
	assert.NotEmpty(t, u.HTML)
}

func TestDisconnectDetachesSession(t *testing.T) {
	srv, projects, sessions := newTestServer(t)

	p := projects.Create("demo", project.TemplateVanilla)
	s, err := sessions.Mount(p.ID)
	require.NoError(t, err)
	s.Channel.BootstrapDocument()

	conn := dial(t, srv, s.ID)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ready"}))
	readUpdate(t, conn)

	conn.Close()

	// Once the read loop notices the close, readiness drops and edits
	// no longer schedule posts.
	assert.Eventually(t, func() bool {
		return !s.Channel.Ready()
	}, time.Second, 10*time.Millisecond)
}
