package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ProtocolError describes a frame that could not be parsed or failed validation.
// Receivers drop such frames; they never end a session.
type ProtocolError struct {
	Raw []byte
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

type envelope struct {
	Type     Type    `json:"type"`
	Sender   *string `json:"sender"`
	Original *string `json:"original"`
}

// Encode serializes a frame, stamping its type.
func Encode(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case SetLanguage:
		v.Type = TypeSetLanguage
		f = v
	case LanguageAck:
		v.Type = TypeLanguageAck
		f = v
	case Chat:
		v.Type = TypeMessage
		f = v
	case Relay:
		v.Type = TypeMessage
		f = v
	case Error:
		v.Type = TypeError
		f = v
	case Unknown:
		return nil, fmt.Errorf("cannot encode frame of unknown type %q", v.Type)
	}

	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.FrameType(), err)
	}
	return data, nil
}

// Decode parses one frame. Frames with an unrecognized type decode to Unknown with a nil error;
// malformed or invalid frames return a *ProtocolError.
func Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Raw: data, Err: err}
	}

	switch env.Type {
	case TypeSetLanguage:
		var f SetLanguage
		return decodeInto(data, &f)
	case TypeLanguageAck:
		var f LanguageAck
		return decodeInto(data, &f)
	case TypeMessage:
		if env.Sender != nil {
			var f Relay
			return decodeInto(data, &f)
		}
		// An absent translate flag means translate.
		f := Chat{Translate: true}
		return decodeInto(data, &f)
	case TypeError:
		var f Error
		return decodeInto(data, &f)
	case "":
		// Relayed chat from backends that do not tag their payloads.
		if env.Sender != nil && env.Original != nil {
			var f Relay
			return decodeInto(data, &f)
		}
		return nil, &ProtocolError{Raw: data, Err: fmt.Errorf("frame has no type")}
	default:
		return Unknown{Type: env.Type}, nil
	}
}

func decodeInto[T Frame](data []byte, f *T) (Frame, error) {
	if err := json.Unmarshal(data, f); err != nil {
		return nil, &ProtocolError{Raw: data, Err: err}
	}
	if err := Validate(*f); err != nil {
		return nil, &ProtocolError{Raw: data, Err: err}
	}
	return *f, nil
}

// Validate checks the struct tags of a frame.
func Validate(f Frame) error {
	if _, ok := f.(Unknown); ok {
		return nil
	}
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid %s frame: %w", f.FrameType(), err)
	}
	return nil
}
