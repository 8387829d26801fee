package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightly-app/brightly/backend/internal/handler/respond"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/pkg/utils"
)

// Handler 账号与个人资料的HTTP处理器
type Handler struct {
	sessions *session.Manager
}

// New 创建账号处理器
func New(sessions *session.Manager) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册账号生命周期与资料路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{ownerID}", h.handleStatus)
	r.Post("/accounts/{ownerID}/sign-in", h.handleSignIn)
	r.Post("/accounts/{ownerID}/sign-out", h.handleSignOut)
	r.Get("/profiles/{ownerID}", h.handleGetProfile)
	r.Put("/profiles/{ownerID}", h.handleUpdateProfile)
}

// StatusResponse reports whether an owner has an open application context.
type StatusResponse struct {
	OwnerID  string `json:"ownerId"`
	SignedIn bool   `json:"signedIn"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	utils.RespondJSON(w, http.StatusOK, StatusResponse{OwnerID: ownerID, SignedIn: h.sessions.SignedIn(ownerID)})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	p, err := h.sessions.SignIn(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(chi.URLParam(r, "ownerID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.sessions.Profile(r.Context(), chi.URLParam(r, "ownerID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload profile.Update
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.sessions.UpdateProfile(r.Context(), chi.URLParam(r, "ownerID"), payload)
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
