package translate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
	translateService "github.com/zhouzirui/lingualive/backend/internal/service/translate"
	"github.com/zhouzirui/lingualive/backend/pkg/utils"
)

// Handler 独立翻译接口的HTTP处理器
type Handler struct {
	translator translateService.Translator
	log        *zap.SugaredLogger
}

// New 创建翻译处理器
func New(translator translateService.Translator, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{translator: translator, log: log}
}

// RegisterRoutes 注册翻译相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.handleListLanguages)
	r.Post("/translate", h.handleTranslate)
}

type languageView struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// handleListLanguages 列出支持的语言
func (h *Handler) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	languages := lo.Map(chat.SupportedLanguages(), func(l chat.Language, _ int) languageView {
		return languageView{Code: l.String(), Name: l.Name()}
	})
	utils.RespondJSON(w, http.StatusOK, languages)
}

type translateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

// handleTranslate 翻译单段文本：{text, target} -> {output}
func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var payload translateRequest
	if !utils.DecodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	target, err := chat.ParseLanguage(payload.Target)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	output, err := h.translator.Translate(r.Context(), payload.Text, target)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, translateService.ErrEmptyText) {
			status = http.StatusBadRequest
		}
		h.log.Warnw("translate request failed", "target", target, "error", err)
		utils.RespondError(w, status, "translation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"output": output})
}
