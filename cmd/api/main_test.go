package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/config"
	"github.com/zhouzirui/lingualive/backend/internal/service/translate"
)

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewTranslatorFallsBackToStub(t *testing.T) {
	tr := newTranslator(context.Background(), config.AIConfig{}, zap.NewNop().Sugar())
	if _, ok := tr.(*translate.StubTranslator); !ok {
		t.Fatalf("expected stub translator, got %T", tr)
	}
}
