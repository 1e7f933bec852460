package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/config"
	chathandler "github.com/zhouzirui/lingualive/backend/internal/handler/chat"
	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/lingualive/backend/internal/service/chat"
	"github.com/zhouzirui/lingualive/backend/internal/service/translate"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want command
	}{
		{"  hello there ", command{kind: cmdSay, text: "hello there"}},
		{"/lang HI", command{kind: cmdLang, lang: chat.Hindi}},
		{"/translate off", command{kind: cmdTranslate, on: false}},
		{"/translate on", command{kind: cmdTranslate, on: true}},
		{"/role b", command{kind: cmdRole, role: chat.RoleB}},
		{"/log", command{kind: cmdLog}},
		{"/reconnect", command{kind: cmdReconnect}},
		{"/exit", command{kind: cmdQuit}},
	}

	for _, tc := range cases {
		got, err := parseCommand(tc.line)
		require.NoError(t, err, tc.line)
		require.Equal(t, tc.want, got, tc.line)
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"/lang de", "/translate maybe", "/role C", "/dance"} {
		_, err := parseCommand(line)
		require.Error(t, err, line)
	}
}

func TestFormatMessage(t *testing.T) {
	latency := 120.0
	m := chat.Message{
		Sender:     chat.RoleA,
		Original:   "hello",
		Translated: "नमस्ते",
		LatencyMs:  &latency,
		SentAt:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local),
	}

	require.Equal(t, "10:00:00  Participant A: नमस्ते  (latency 120.00 ms)", formatMessage(m, chat.RoleB))
	require.Equal(t, "10:00:00  You: hello", formatMessage(m, chat.RoleA))

	m.LatencyMs = nil
	require.Contains(t, formatMessage(m, chat.RoleB), "no latency available")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunAgainstRelay(t *testing.T) {
	log := zap.NewNop().Sugar()
	svc := chatservice.NewService(translate.NewStubTranslator(nil), log)
	r := chi.NewRouter()
	relayCfg := config.RelayConfig{PingInterval: time.Second, ReadTimeout: 5 * time.Second, WriteTimeout: time.Second}
	chathandler.NewWebSocketHandler(svc, relayCfg, log).RegisterWebSocketRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	clientCfg := config.ClientConfig{
		NegotiationTimeout: 2 * time.Second,
		NegotiationRetries: 1,
		HandshakeTimeout:   2 * time.Second,
	}
	in, feed := io.Pipe()
	out := &syncBuffer{}

	done := make(chan error, 1)
	go func() {
		done <- run(context.Background(), clientCfg, "ws"+strings.TrimPrefix(srv.URL, "http"),
			chat.RoleB, chat.DefaultPreference(chat.RoleB), log, in, out)
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "-- ready") }, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return svc.Language(chat.RoleB) == chat.Hindi }, time.Second, 10*time.Millisecond)

	_, err := io.WriteString(feed, "thank you\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "You: thank you") }, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(feed, "/status\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "role B, language Hindi, translation true, ready")
	}, time.Second, 10*time.Millisecond)
	require.Regexp(t, `session [0-9a-f-]{36}: role B`, out.String())

	_, err = io.WriteString(feed, "/quit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after /quit")
	}
	feed.Close()
}
