package translate

import (
	"context"
	"errors"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

// ErrEmptyText is returned when there is nothing to translate.
var ErrEmptyText = errors.New("text is empty")

// Translator converts text into a target display language.
type Translator interface {
	Translate(ctx context.Context, text string, target chat.Language) (string, error)
}

// Func adapts a function to Translator.
type Func func(ctx context.Context, text string, target chat.Language) (string, error)

func (f Func) Translate(ctx context.Context, text string, target chat.Language) (string, error) {
	return f(ctx, text, target)
}
