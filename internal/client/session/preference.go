package session

import (
	"sync"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

// PreferenceStore holds the local participant's language preference. It has no side effects;
// the Session decides what a change means for the connection.
type PreferenceStore struct {
	mu   sync.RWMutex
	pref chat.LanguagePreference
}

// NewPreferenceStore seeds the store with pref.
func NewPreferenceStore(pref chat.LanguagePreference) *PreferenceStore {
	return &PreferenceStore{pref: pref}
}

// Get returns the current preference.
func (s *PreferenceStore) Get() chat.LanguagePreference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pref
}

// SetLanguage stores lang and reports whether it differs from the previous value.
func (s *PreferenceStore) SetLanguage(lang chat.Language) (bool, error) {
	if _, err := chat.ParseLanguage(string(lang)); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pref.Language == lang {
		return false, nil
	}
	s.pref.Language = lang
	return true, nil
}

// SetTranslation toggles translation and reports whether the value changed.
func (s *PreferenceStore) SetTranslation(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pref.TranslationEnabled == enabled {
		return false
	}
	s.pref.TranslationEnabled = enabled
	return true
}
