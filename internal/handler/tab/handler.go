package tab

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightly-app/brightly/backend/internal/handler/respond"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/pkg/utils"
)

// Handler 功能标签的HTTP处理器
type Handler struct {
	tabs     tab.Store
	sessions *session.Manager
}

// New 创建标签处理器
func New(tabs tab.Store, sessions *session.Manager) *Handler {
	return &Handler{tabs: tabs, sessions: sessions}
}

// RegisterCatalogRoutes 注册公开的标签目录
func (h *Handler) RegisterCatalogRoutes(r chi.Router) {
	r.Get("/tabs", h.handleListTabs)
}

// RegisterRoutes 注册按账号过滤的标签路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tabs/{ownerID}", h.handleVisibleTabs)
}

// handleListTabs 列出所有标签
func (h *Handler) handleListTabs(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.tabs.List())
}

// handleVisibleTabs 列出当前账号可见的标签
func (h *Handler) handleVisibleTabs(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.Tabs(chi.URLParam(r, "ownerID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, items)
}
