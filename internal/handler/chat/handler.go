package chat

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/lingualive/backend/internal/service/chat"
	"github.com/zhouzirui/lingualive/backend/pkg/utils"
)

// Handler 中继状态的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	keepAlive time.Duration
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc, keepAlive: 15 * time.Second}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/participants", h.handleParticipants)
	r.Get("/events", h.handleEvents)
}

// handleParticipants 返回 A、B 的在线状态和语言
func (h *Handler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"participants": h.chatSvc.Participants(),
	})
}

// handleEvents 以 SSE 推送每条中继消息的原文
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	feed, cancel := h.chatSvc.Subscribe(32)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEComment(w, flusher, "connected"); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keepalive"); err != nil {
				return
			}
		case relay, ok := <-feed:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, relay.ID, "message", relay); err != nil {
				return
			}
		}
	}
}
