package stream

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brightly-app/brightly/backend/internal/handler/respond"
	"github.com/brightly-app/brightly/backend/internal/logger"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/prompt"
	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/pkg/utils"
)

const module = "stream"

// Handler manages streaming replies via Server-Sent Events
type Handler struct {
	sessions *session.Manager
	log      logger.Logger
}

// New creates a new stream handler
func New(sessions *session.Manager, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{sessions: sessions, log: log}
}

// RegisterRoutes 注册流式发送路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{ownerID}/{tab}/{sessionID}", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string            `json:"event"`
	Content   string            `json:"content,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	Finished  bool              `json:"finished,omitempty"`
	Error     string            `json:"error,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Fallback  string            `json:"fallback,omitempty"`
	Session   *session.Snapshot `json:"session,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	t := tab.ID(chi.URLParam(r, "tab"))
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")
	tone := prompt.Tone(r.URL.Query().Get("tone"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if tone != "" && !tone.Valid() {
		utils.RespondError(w, http.StatusBadRequest, "tone must be one of simple, detailed, casual")
		return
	}
	// Reject signed-out owners and unknown tabs while a JSON status can still be sent.
	if _, err := h.sessions.View(ownerID, t); err != nil {
		respond.Error(w, err)
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	h.send(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	opts := []session.SendOption{
		session.WithDeltaHandler(func(delta string) {
			if delta == "" {
				return
			}
			h.send(w, flusher, StreamResponse{Event: "delta", SessionID: sessionID, Content: delta})
		}),
	}
	if tone != "" {
		opts = append(opts, session.WithTone(tone))
	}

	snap, err := h.sessions.Send(r.Context(), ownerID, t, sessionID, message, opts...)
	if err != nil {
		body := respond.Body(err)
		h.send(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: snap.SessionID,
			Error:     body.Error,
			Kind:      body.Kind,
			Fallback:  body.Fallback,
			Session:   &snap,
		})
		return
	}

	reply := snap.Messages[len(snap.Messages)-1]
	h.send(w, flusher, StreamResponse{Event: "message", SessionID: snap.SessionID, Content: reply.Content})
	h.send(w, flusher, StreamResponse{Event: "end", SessionID: snap.SessionID, Finished: true, Session: &snap})

	h.log.Debug(module, "stream completed", map[string]interface{}{
		"owner": ownerID, "tab": t, "session": snap.SessionID,
	})
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	if err := utils.SendSSEChunk(w, flusher, response); err != nil {
		h.log.Warn(module, "failed to write sse chunk", map[string]interface{}{"event": response.Event, "error": err.Error()})
	}
}
