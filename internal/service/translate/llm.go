package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/config"
	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

const systemPrompt = "You are a chat translator. Translate the user's message into {language} ({code}). " +
	"Keep names, emoji and tone. Reply with the translation only, without quotes or explanations."

// LLMTranslator translates through an Ark chat model.
type LLMTranslator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	log   *zap.SugaredLogger
}

// NewLLMTranslator builds the chat model from cfg and compiles the translation chain.
func NewLLMTranslator(ctx context.Context, cfg config.AIConfig, log *zap.SugaredLogger) (*LLMTranslator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewLLMTranslatorWithModel(ctx, chatModel, log)
}

// NewLLMTranslatorWithModel compiles the translation chain around an existing model.
func NewLLMTranslatorWithModel(ctx context.Context, chatModel model.BaseChatModel, log *zap.SugaredLogger) (*LLMTranslator, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{text}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile translation chain: %w", err)
	}

	return &LLMTranslator{chain: runnable, log: log}, nil
}

// Translate implements Translator.
func (t *LLMTranslator) Translate(ctx context.Context, text string, target chat.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	resp, err := t.chain.Invoke(ctx, map[string]any{
		"language": target.Name(),
		"code":     string(target),
		"text":     text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run translation chain: %w", err)
	}

	out := strings.TrimSpace(resp.Content)
	t.log.Debugw("translated", "target", target, "inputLength", len(text), "outputLength", len(out))
	return out, nil
}
