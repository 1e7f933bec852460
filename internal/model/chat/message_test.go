package chat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

func TestDisplayTextPicksSideByViewer(t *testing.T) {
	latency := 120.0
	msg := chat.Message{Sender: chat.RoleB, Original: "hola", Translated: "hello", LatencyMs: &latency}

	require.Equal(t, "hello", msg.DisplayText(chat.RoleA))
	require.Equal(t, "hola", msg.DisplayText(chat.RoleB))

	d, ok := msg.Latency()
	require.True(t, ok)
	require.Equal(t, 120*time.Millisecond, d)
}

func TestDisplayTextFallsBackToOriginal(t *testing.T) {
	msg := chat.Message{Sender: chat.RoleB, Original: "namaste"}

	require.Equal(t, "namaste", msg.DisplayText(chat.RoleA))
	_, ok := msg.Latency()
	require.False(t, ok)
}

func TestParseRole(t *testing.T) {
	role, err := chat.ParseRole("A")
	require.NoError(t, err)
	require.Equal(t, chat.RoleB, role.Peer())

	_, err = chat.ParseRole("C")
	require.Error(t, err)
	_, err = chat.ParseRole("a")
	require.Error(t, err)
}

func TestParseLanguage(t *testing.T) {
	for _, lang := range chat.SupportedLanguages() {
		got, err := chat.ParseLanguage(string(lang))
		require.NoError(t, err)
		require.Equal(t, lang, got)
	}

	_, err := chat.ParseLanguage("de")
	require.Error(t, err)
	require.Equal(t, "Marathi", chat.Marathi.Name())
}

func TestDefaultPreference(t *testing.T) {
	require.Equal(t, chat.LanguagePreference{Language: chat.English, TranslationEnabled: true}, chat.DefaultPreference(chat.RoleA))
	require.Equal(t, chat.Hindi, chat.DefaultPreference(chat.RoleB).Language)
}
