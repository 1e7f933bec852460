package chat

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// ErrUnsupportedLanguage is returned for codes outside the supported set.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is a display language code from the closed supported set.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
	French  Language = "fr"
	Bengali Language = "bn"
	Marathi Language = "mr"
)

var languageNames = map[Language]string{
	English: "English",
	Hindi:   "Hindi",
	French:  "French",
	Bengali: "Bengali",
	Marathi: "Marathi",
}

// SupportedLanguages lists the selectable languages in picker order.
func SupportedLanguages() []Language {
	return []Language{English, Hindi, French, Bengali, Marathi}
}

// ParseLanguage validates a language code.
func ParseLanguage(raw string) (Language, error) {
	lang := Language(raw)
	if !lang.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnsupportedLanguage, raw)
	}
	return lang, nil
}

// Valid reports whether the code belongs to the supported set.
func (l Language) Valid() bool {
	return lo.Contains(SupportedLanguages(), l)
}

// Name returns the English display name, or the raw code when unknown.
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

func (l Language) String() string {
	return string(l)
}

// DefaultLanguage is the language a participant starts with before picking one.
func DefaultLanguage(role Role) Language {
	if role == RoleB {
		return Hindi
	}
	return English
}

// LanguagePreference is the local participant's display settings.
type LanguagePreference struct {
	Language           Language `json:"language"`
	TranslationEnabled bool     `json:"translationEnabled"`
}

// DefaultPreference returns the starting preference for a role.
func DefaultPreference(role Role) LanguagePreference {
	return LanguagePreference{Language: DefaultLanguage(role), TranslationEnabled: true}
}
