package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/config"
	"github.com/zhouzirui/lingualive/backend/internal/handler"
	"github.com/zhouzirui/lingualive/backend/internal/logging"
	"github.com/zhouzirui/lingualive/backend/internal/service/chat"
	"github.com/zhouzirui/lingualive/backend/internal/service/translate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Infow("no .env file loaded, using system environment only", "error", envErr)
	}

	translator := newTranslator(ctx, cfg.AI, logger)
	chatService := chat.NewService(translator, logger.Named("hub"))

	router := handler.NewRouter(chatService, translator, cfg.Relay, logger)

	startServer(ctx, cfg.Server, router, logger)
}

// newTranslator 优先使用 Ark 模型，未配置或初始化失败时退回到本地词典翻译。
func newTranslator(ctx context.Context, aiCfg config.AIConfig, logger *zap.SugaredLogger) translate.Translator {
	if !aiCfg.Enabled() {
		logger.Warnw("Ark 凭证未配置，使用本地词典翻译")
		return translate.NewStubTranslator(nil)
	}

	llm, err := translate.NewLLMTranslator(ctx, aiCfg, logger.Named("llm"))
	if err != nil {
		logger.Warnw("failed to initialize LLM translator, falling back to stub", "error", err)
		return translate.NewStubTranslator(nil)
	}

	logger.Infow("LLM translator initialized", "model", aiCfg.Model)
	return llm
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.SugaredLogger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Infow("LinguaLive relay listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatalw("server error", "error", err)
	}
	logger.Infow("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
