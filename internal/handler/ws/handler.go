// Package ws serves the chat session operations over a WebSocket connection.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/brightly-app/brightly/backend/internal/handler/respond"
	"github.com/brightly-app/brightly/backend/internal/logger"
	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/prompt"
	"github.com/brightly-app/brightly/backend/internal/service/session"
)

const (
	module       = "ws"
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Inbound message types.
const (
	TypeLoad  = "load"
	TypeSend  = "send"
	TypeNew   = "new"
	TypeClear = "clear"
	TypeList  = "list"
)

// Outbound message types.
const (
	TypeConnected = "connected"
	TypeResult    = "result"
	TypeDelta     = "delta"
	TypeError     = "error"
)

// Handler WebSocket聊天处理器
type Handler struct {
	sessions *session.Manager
	log      logger.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(sessions *session.Manager, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		sessions: sessions,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{ownerID}/{tab}", h.handleWebSocket)
}

// InboundMessage is a client frame.
type InboundMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      SendPayload `json:"data"`
}

// SendPayload carries the text of a send frame.
type SendPayload struct {
	Text string `json:"text"`
	Tone string `json:"tone,omitempty"`
}

// OutboundMessage is a server frame. Action echoes the inbound type it answers.
type OutboundMessage struct {
	Type      string      `json:"type"`
	Action    string      `json:"action,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connection struct {
	conn    *websocket.Conn
	ownerID string
	tab     tab.ID
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	t := tab.ID(chi.URLParam(r, "tab"))

	snap, err := h.sessions.View(ownerID, t)
	if err != nil {
		respond.Error(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(module, "upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	go pingLoop(ctx, conn)

	c := &connection{conn: conn, ownerID: ownerID, tab: t}
	h.log.Info(module, "connection opened", map[string]interface{}{"owner": ownerID, "tab": t})
	h.write(c, OutboundMessage{Type: TypeConnected, SessionID: snap.SessionID, Data: snap})

	for {
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn(module, "read failed", map[string]interface{}{"owner": ownerID, "error": err.Error()})
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, c, msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg InboundMessage) {
	var (
		result interface{}
		snap   session.Snapshot
		err    error
	)

	switch msg.Type {
	case TypeLoad:
		snap, err = h.sessions.LoadSession(ctx, c.ownerID, c.tab, msg.SessionID)
		result = snap
	case TypeSend:
		snap, err = h.handleSend(ctx, c, msg)
		result = snap
	case TypeNew:
		snap, err = h.sessions.StartNewSession(ctx, c.ownerID, c.tab)
		result = snap
	case TypeClear:
		snap, err = h.sessions.ClearSession(ctx, c.ownerID, c.tab, msg.SessionID)
		result = snap
	case TypeList:
		result, err = h.sessions.ListSessions(ctx, c.ownerID, c.tab)
	default:
		h.write(c, OutboundMessage{Type: TypeError, Action: msg.Type, Data: map[string]string{"error": "unsupported message type: " + msg.Type}})
		return
	}

	if err != nil {
		body := respond.Body(err)
		data := map[string]interface{}{"error": body.Error, "kind": body.Kind}
		if body.Fallback != "" {
			data["fallback"] = body.Fallback
			data["session"] = snap
		}
		h.write(c, OutboundMessage{Type: TypeError, Action: msg.Type, SessionID: snap.SessionID, Data: data})
		return
	}
	h.write(c, OutboundMessage{Type: TypeResult, Action: msg.Type, SessionID: snap.SessionID, Data: result})
}

func (h *Handler) handleSend(ctx context.Context, c *connection, msg InboundMessage) (session.Snapshot, error) {
	sessionID := chat.NormalizeSessionID(msg.SessionID)
	opts := []session.SendOption{
		session.WithDeltaHandler(func(delta string) {
			h.write(c, OutboundMessage{Type: TypeDelta, Action: TypeSend, SessionID: sessionID, Data: delta})
		}),
	}
	if msg.Data.Tone != "" {
		opts = append(opts, session.WithTone(prompt.Tone(msg.Data.Tone)))
	}
	return h.sessions.Send(ctx, c.ownerID, c.tab, sessionID, msg.Data.Text, opts...)
}

func (h *Handler) write(c *connection, msg OutboundMessage) {
	msg.Timestamp = time.Now().Unix()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		h.log.Warn(module, "write failed", map[string]interface{}{"owner": c.ownerID, "type": msg.Type, "error": err.Error()})
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
