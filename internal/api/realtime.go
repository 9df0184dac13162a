package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tradeforge/internal/model"
	"tradeforge/internal/notify"
)

var _ notify.Hooks = (*Hub)(nil)

// event is the wire shape RealtimePush fans out: {type, payload} with
// type one of new_trade, trade_update, trade_closed, new_log, stats_update,
// settings_update.
type event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The operator UI is same-origin or a configured dashboard, not a
	// public multi-tenant service; no per-origin allowlist is needed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub implements notify.Hooks by fanning every lifecycle event out to
// every connected websocket client, layered on top of notify.LoggingSink
// via notify.Multi. Generalized from the donor's StateListener fan-out
// idiom (internal/notify.Multi) to a live push transport.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{}), logger: logger}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	conn.Close()
}

func (h *Hub) broadcast(eventType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(event{Type: eventType, Payload: payload}); err != nil {
			h.logger.Warn().Err(err).Msg("api: websocket write failed, dropping client")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// OnTradeOpen implements notify.Hooks.
func (h *Hub) OnTradeOpen(trade model.Trade) {
	h.broadcast("new_trade", trade)
}

// OnTradeClose implements notify.Hooks. A trade closing also moves the
// stats summary, so both events fire.
func (h *Hub) OnTradeClose(trade model.Trade) {
	h.broadcast("trade_closed", trade)
	h.broadcast("stats_update", gin.H{"tradeID": trade.ID, "profit": trade.Profit})
}

// OnSignal implements notify.Hooks, surfaced as an activity-log entry —
// the UI's log pane is the natural home for "signal generated" events.
func (h *Hub) OnSignal(symbol, action string, strength float64) {
	h.broadcast("new_log", gin.H{
		"level":   string(model.LogInfo),
		"message": "signal generated",
		"details": gin.H{"symbol": symbol, "action": action, "strength": strength},
		"source":  "engine",
	})
}

// OnTrailingUpdate implements notify.Hooks; a ratcheted stop is a
// trade_update from the UI's point of view.
func (h *Hub) OnTrailingUpdate(trade model.Trade, newStop float64) {
	h.broadcast("trade_update", gin.H{"trade": trade, "newStop": newStop})
}

// OnSettingsUpdate is pushed directly by the settings handlers, not routed
// through notify.Hooks since settings changes never originate inside the
// engine tick.
func (h *Hub) OnSettingsUpdate(settings model.Settings) {
	h.broadcast("settings_update", settingsToDTO(settings))
}

func (s *Server) handleRealtimePush(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("api: websocket upgrade failed")
		return
	}
	s.hub.add(conn)
	defer s.hub.remove(conn)

	// The client never sends anything meaningful; read until the
	// connection closes so the handler observes disconnects promptly.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
