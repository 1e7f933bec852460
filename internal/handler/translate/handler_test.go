package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
	translateService "github.com/zhouzirui/lingualive/backend/internal/service/translate"
)

func setupRouter(tr translateService.Translator) *chi.Mux {
	r := chi.NewRouter()
	New(tr, nil).RegisterRoutes(r)
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/translate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestTranslate(t *testing.T) {
	r := setupRouter(translateService.NewStubTranslator(nil))

	resp := post(r, `{"text":"Hello","target":"fr"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["output"] != "bonjour" {
		t.Fatalf("unexpected output %q", body["output"])
	}
}

func TestTranslateValidation(t *testing.T) {
	r := setupRouter(translateService.NewStubTranslator(nil))

	cases := map[string]string{
		"empty text":     `{"text":"  ","target":"hi"}`,
		"bad target":     `{"text":"hello","target":"de"}`,
		"missing target": `{"text":"hello"}`,
		"not json":       `hello`,
		"unknown field":  `{"text":"hello","target":"hi","source":"en"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if resp := post(r, body); resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
		})
	}
}

func TestTranslateBackendFailure(t *testing.T) {
	failing := translateService.Func(func(context.Context, string, chat.Language) (string, error) {
		return "", errors.New("model unavailable")
	})
	r := setupRouter(failing)

	if resp := post(r, `{"text":"hello","target":"hi"}`); resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestListLanguages(t *testing.T) {
	r := setupRouter(translateService.NewStubTranslator(nil))

	req := httptest.NewRequest(http.MethodGet, "/languages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var body []languageView
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 5 || body[1].Code != "hi" || body[1].Name != "Hindi" {
		t.Fatalf("unexpected languages: %+v", body)
	}
}
