package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quickpen/backend/internal/infrastructure/logging"
	"github.com/quickpen/backend/internal/infrastructure/monitoring"
	"github.com/quickpen/backend/internal/preview/channel"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler upgrades preview frame connections and bridges them to sync channels.
type Handler struct {
	sessions *channel.Manager
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(sessions *channel.Manager, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
	}
}

// HandleChannel handles WebSocket upgrade for a preview session and pumps
// messages between the frame and its sync channel.
func (h *Handler) HandleChannel(c *gin.Context) {
	previewID := c.Param("id")
	session, ok := h.sessions.Get(previewID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "preview session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("preview_id", previewID),
			zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	log := h.logger.With(
		zap.String("conn_id", connID),
		zap.String("preview_id", previewID))
	log.Info("Preview frame connected")

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	// gorilla allows one concurrent writer per connection; posts arrive
	// from the debounce timer goroutine while pings come from here.
	var writeMu sync.Mutex
	write := func(msgType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(msgType, data)
	}

	gen := session.Attach(func(u channel.Update) error {
		data, err := channel.EncodeUpdate(u)
		if err != nil {
			return err
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("out", channel.TypeUpdate)
		}
		return write(websocket.TextMessage, data)
	})
	defer session.Detach(gen)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			} else {
				log.Info("Preview frame disconnected")
			}
			return
		}

		env, err := channel.DecodeEnvelope(data)
		if err != nil {
			log.Warn("Malformed frame message", zap.Error(err))
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", env.Type)
		}

		switch env.Type {
		case channel.TypeReady:
			session.Channel.HandleReady()
		default:
			log.Debug("Ignoring unknown frame message", zap.String("type", env.Type))
		}
	}
}
