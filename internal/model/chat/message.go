package chat

import "time"

// Message is one chat entry as delivered by the relay. It is never modified after it is logged.
type Message struct {
	ID         string    `json:"id,omitempty"`
	Sender     Role      `json:"sender"`
	Original   string    `json:"original"`
	Translated string    `json:"translated,omitempty"`
	TargetLang Language  `json:"targetLang,omitempty"`
	SourceLang string    `json:"sourceLang,omitempty"`
	LatencyMs  *float64  `json:"latencyMs,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

// DisplayText picks the text shown to viewer: their own words untouched, the peer's words translated.
func (m Message) DisplayText(viewer Role) string {
	if m.Sender == viewer || m.Translated == "" {
		return m.Original
	}
	return m.Translated
}

// Latency returns the backend-measured translation latency, if the relay attached one.
func (m Message) Latency() (time.Duration, bool) {
	if m.LatencyMs == nil {
		return 0, false
	}
	return time.Duration(*m.LatencyMs * float64(time.Millisecond)), true
}

// Mine reports whether viewer authored the message.
func (m Message) Mine(viewer Role) bool {
	return m.Sender == viewer
}
