package push

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// writeTimeout bounds a single websocket write.
const writeTimeout = 10 * time.Second

// Hub tracks live websocket connections by channel id and implements
// Pusher against them. A push to an unknown or dead channel yields
// ErrGone.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*conn
	log   *zap.Logger
}

// conn serializes writes to one websocket connection; gorilla allows
// only a single concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// NewHub returns an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		conns: make(map[string]*conn),
		log:   log,
	}
}

// Register binds a websocket connection to a channel id.
func (h *Hub) Register(channelID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[channelID] = &conn{ws: ws}
	h.log.Info("channel connected", zap.String("channelId", channelID))
}

// Unregister drops a channel. The websocket itself is closed by the
// read loop that owns it.
func (h *Hub) Unregister(channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, channelID)
	h.log.Info("channel disconnected", zap.String("channelId", channelID))
}

// Push writes a text message to the channel. A missing channel or a
// failed write reports ErrGone; the failed connection is dropped so
// later pushes fail fast.
func (h *Hub) Push(ctx context.Context, channelID string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.conns[channelID]
	h.mu.RUnlock()
	if !ok {
		return ErrGone
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		h.Unregister(channelID)
		return ErrGone
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.log.Warn("push failed, dropping channel",
			zap.String("channelId", channelID), zap.Error(err))
		h.Unregister(channelID)
		return ErrGone
	}
	return nil
}
