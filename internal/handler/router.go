package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/config"
	"github.com/zhouzirui/lingualive/backend/internal/handler/chat"
	"github.com/zhouzirui/lingualive/backend/internal/handler/translate"
	middlewarePkg "github.com/zhouzirui/lingualive/backend/internal/middleware"
	chatService "github.com/zhouzirui/lingualive/backend/internal/service/chat"
	translateService "github.com/zhouzirui/lingualive/backend/internal/service/translate"
	"github.com/zhouzirui/lingualive/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, translator translateService.Translator, relayCfg config.RelayConfig, log *zap.SugaredLogger) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Create handlers
	chatHandler := chat.New(chatSvc)
	wsHandler := chat.NewWebSocketHandler(chatSvc, relayCfg, log.Named("relay"))
	translateHandler := translate.New(translator, log.Named("translate"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Chat channel, one per role
	wsHandler.RegisterWebSocketRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		translateHandler.RegisterRoutes(api)
	})

	return r
}
