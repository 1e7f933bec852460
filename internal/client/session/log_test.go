package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

func TestMessageLogAppendOnly(t *testing.T) {
	log := NewMessageLog()
	require.Zero(t, log.Len())

	log.Append(chat.Message{Sender: chat.RoleA, Original: "first"})
	log.Append(chat.Message{Sender: chat.RoleB, Original: "second"})

	snap := log.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "first", snap[0].Original)
	require.Equal(t, "second", snap[1].Original)

	snap[0] = chat.Message{Original: "overwritten"}
	require.Equal(t, "first", log.Snapshot()[0].Original)
}

func TestMessageLogConcurrentReaders(t *testing.T) {
	log := NewMessageLog()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			log.Append(chat.Message{Original: "x"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = log.Snapshot()
		}
	}()
	wg.Wait()
	require.Equal(t, 100, log.Len())
}

func TestPreferenceStore(t *testing.T) {
	store := NewPreferenceStore(chat.DefaultPreference(chat.RoleB))
	require.Equal(t, chat.Hindi, store.Get().Language)

	changed, err := store.SetLanguage(chat.Hindi)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = store.SetLanguage(chat.Bengali)
	require.NoError(t, err)
	require.True(t, changed)

	_, err = store.SetLanguage("xx")
	require.Error(t, err)
	require.Equal(t, chat.Bengali, store.Get().Language)

	require.True(t, store.SetTranslation(false))
	require.False(t, store.SetTranslation(false))
	require.False(t, store.Get().TranslationEnabled)
}
