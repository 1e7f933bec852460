package translate

import (
	"context"
	"strings"
	"time"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

// StubConfig configures StubTranslator.
type StubConfig struct {
	// Delay simulates backend processing time.
	Delay time.Duration
	// Dictionary maps target language to source text to translation.
	Dictionary map[chat.Language]map[string]string
}

// DefaultStubConfig returns a small phrase book for local runs.
func DefaultStubConfig() *StubConfig {
	return &StubConfig{
		Dictionary: map[chat.Language]map[string]string{
			chat.Hindi: {
				"hello":        "नमस्ते",
				"how are you?": "आप कैसे हैं?",
				"thank you":    "धन्यवाद",
			},
			chat.French: {
				"hello":        "bonjour",
				"how are you?": "comment allez-vous ?",
				"thank you":    "merci",
			},
			chat.English: {
				"नमस्ते":  "hello",
				"bonjour": "hello",
				"hola":    "hello",
			},
		},
	}
}

// StubTranslator returns deterministic translations: a dictionary hit, or the text tagged with the
// target language code.
type StubTranslator struct {
	config *StubConfig
}

// NewStubTranslator creates a stub translator. A nil config uses DefaultStubConfig.
func NewStubTranslator(config *StubConfig) *StubTranslator {
	if config == nil {
		config = DefaultStubConfig()
	}
	return &StubTranslator{config: config}
}

// Translate implements Translator.
func (s *StubTranslator) Translate(ctx context.Context, text string, target chat.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if s.config.Delay > 0 {
		select {
		case <-time.After(s.config.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if phrases, ok := s.config.Dictionary[target]; ok {
		if translated, ok := phrases[strings.ToLower(strings.TrimSpace(text))]; ok {
			return translated, nil
		}
	}
	return "[" + string(target) + "] " + text, nil
}
