package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightly-app/brightly/backend/internal/handler/respond"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/prompt"
	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	sessions *session.Manager
}

// New 创建聊天处理器
func New(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册聊天与历史记录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats/{ownerID}/{tab}/sessions", h.handleListSessions)
	r.Post("/chats/{ownerID}/{tab}/sessions", h.handleStartNewSession)
	r.Get("/chats/{ownerID}/{tab}/sessions/{sessionID}", h.handleLoadSession)
	r.Delete("/chats/{ownerID}/{tab}/sessions/{sessionID}", h.handleClearSession)
	r.Post("/chats/{ownerID}/{tab}/sessions/{sessionID}/messages", h.handleSend)

	r.Get("/history/{ownerID}", h.handleHistory)
	r.Delete("/history/{ownerID}/{tab}/{sessionID}", h.handleClearSession)
}

// SendRequest is the body of a send.
type SendRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
	Tone string `json:"tone" validate:"omitempty,oneof=simple detailed casual"`
}

func routeKey(r *http.Request) (ownerID string, t tab.ID, sessionID string) {
	return chi.URLParam(r, "ownerID"), tab.ID(chi.URLParam(r, "tab")), chi.URLParam(r, "sessionID")
}

// handleListSessions 列出某个标签下的会话
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ownerID, t, _ := routeKey(r)
	summaries, err := h.sessions.ListSessions(r.Context(), ownerID, t)
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, summaries)
}

// handleStartNewSession 开始新的会话
func (h *Handler) handleStartNewSession(w http.ResponseWriter, r *http.Request) {
	ownerID, t, _ := routeKey(r)
	snap, err := h.sessions.StartNewSession(r.Context(), ownerID, t)
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, snap)
}

// handleLoadSession 加载会话记录
func (h *Handler) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	ownerID, t, sessionID := routeKey(r)
	snap, err := h.sessions.LoadSession(r.Context(), ownerID, t, sessionID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

// handleClearSession 删除会话记录
func (h *Handler) handleClearSession(w http.ResponseWriter, r *http.Request) {
	ownerID, t, sessionID := routeKey(r)
	snap, err := h.sessions.ClearSession(r.Context(), ownerID, t, sessionID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

// handleSend 发送消息并返回更新后的会话
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	ownerID, t, sessionID := routeKey(r)

	var payload SendRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts []session.SendOption
	if payload.Tone != "" {
		opts = append(opts, session.WithTone(prompt.Tone(payload.Tone)))
	}

	snap, err := h.sessions.Send(r.Context(), ownerID, t, sessionID, payload.Text, opts...)
	if err != nil {
		respond.SendError(w, snap, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

// handleHistory 搜索聊天历史
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	query := r.URL.Query()

	transcripts, err := h.sessions.History(r.Context(), ownerID, tab.ID(query.Get("tab")), query.Get("q"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, transcripts)
}
