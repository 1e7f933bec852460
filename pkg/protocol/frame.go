// Package protocol defines the JSON frames exchanged over a chat channel.
package protocol

// Type is the frame discriminator carried in the "type" field.
type Type string

const (
	TypeSetLanguage Type = "set_lang"
	TypeLanguageAck Type = "lang_ack"
	TypeMessage     Type = "message"
	TypeError       Type = "error"
)

// Frame is one protocol message unit.
type Frame interface {
	FrameType() Type
}

// SetLanguage declares the sender's display language. Client to backend.
type SetLanguage struct {
	Type Type   `json:"type"`
	Lang string `json:"lang" validate:"required,oneof=en hi fr bn mr"`
}

// LanguageAck confirms a SetLanguage. Backend to client.
type LanguageAck struct {
	Type Type   `json:"type"`
	Lang string `json:"lang,omitempty"`
}

// Chat is an outbound chat line. Translate=false asks the backend to relay it untranslated.
type Chat struct {
	Type      Type   `json:"type"`
	Text      string `json:"text"`
	Translate bool   `json:"translate"`
}

// Relay is a chat line delivered to a participant, already translated for that recipient.
type Relay struct {
	Type       Type     `json:"type,omitempty"`
	ID         string   `json:"id,omitempty"`
	Sender     string   `json:"sender" validate:"required,oneof=A B"`
	Original   string   `json:"original"`
	Translated string   `json:"translated"`
	TargetLang string   `json:"target_lang,omitempty"`
	SourceLang string   `json:"source_lang,omitempty"`
	Latency    *float64 `json:"latency,omitempty"`
	Timestamp  float64  `json:"timestamp,omitempty"`
}

// Error reports a rejected frame back to the client.
type Error struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

// Unknown stands in for frames whose type this build does not understand.
type Unknown struct {
	Type Type
}

func (SetLanguage) FrameType() Type { return TypeSetLanguage }
func (LanguageAck) FrameType() Type { return TypeLanguageAck }
func (Chat) FrameType() Type        { return TypeMessage }
func (Relay) FrameType() Type       { return TypeMessage }
func (Error) FrameType() Type       { return TypeError }
func (u Unknown) FrameType() Type   { return u.Type }

// NewSetLanguage builds a set_lang frame.
func NewSetLanguage(lang string) SetLanguage {
	return SetLanguage{Type: TypeSetLanguage, Lang: lang}
}

// NewLanguageAck builds a lang_ack frame.
func NewLanguageAck(lang string) LanguageAck {
	return LanguageAck{Type: TypeLanguageAck, Lang: lang}
}

// NewChat builds an outbound message frame.
func NewChat(text string, translate bool) Chat {
	return Chat{Type: TypeMessage, Text: text, Translate: translate}
}

// NewError builds an error frame.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}
