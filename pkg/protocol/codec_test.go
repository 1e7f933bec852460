package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lingualive/backend/pkg/protocol"
)

func TestDecodeRelayedMessage(t *testing.T) {
	frame, err := protocol.Decode([]byte(`{"type":"message","sender":"B","original":"hola","translated":"hello","latency":120}`))
	require.NoError(t, err)

	relay, ok := frame.(protocol.Relay)
	require.True(t, ok, "expected Relay, got %T", frame)
	require.Equal(t, "B", relay.Sender)
	require.Equal(t, "hola", relay.Original)
	require.Equal(t, "hello", relay.Translated)
	require.NotNil(t, relay.Latency)
	require.Equal(t, 120.0, *relay.Latency)
}

func TestDecodeUntypedRelay(t *testing.T) {
	frame, err := protocol.Decode([]byte(`{"sender":"A","original":"hi","translated":"नमस्ते","target_lang":"hi","latency":85.12,"timestamp":1700000000.5}`))
	require.NoError(t, err)

	relay, ok := frame.(protocol.Relay)
	require.True(t, ok)
	require.Equal(t, "hi", relay.TargetLang)
}

func TestDecodeOutboundChat(t *testing.T) {
	frame, err := protocol.Decode([]byte(`{"type":"message","text":"hello","translate":false}`))
	require.NoError(t, err)
	require.Equal(t, protocol.NewChat("hello", false), frame)

	frame, err = protocol.Decode([]byte(`{"type":"message","text":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, protocol.NewChat("hello", true), frame)
}

func TestDecodeLanguageFrames(t *testing.T) {
	frame, err := protocol.Decode([]byte(`{"type":"set_lang","lang":"fr"}`))
	require.NoError(t, err)
	require.Equal(t, protocol.NewSetLanguage("fr"), frame)

	frame, err = protocol.Decode([]byte(`{"type":"lang_ack"}`))
	require.NoError(t, err)
	require.Equal(t, protocol.TypeLanguageAck, frame.FrameType())
}

func TestDecodeUnknownTypeIsNotAnError(t *testing.T) {
	frame, err := protocol.Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	require.Equal(t, protocol.Unknown{Type: "ping"}, frame)
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	cases := map[string]string{
		"malformed json":       `{"type":`,
		"unsupported language": `{"type":"set_lang","lang":"de"}`,
		"missing language":     `{"type":"set_lang"}`,
		"bad sender":           `{"type":"message","sender":"C","original":"x","translated":"x"}`,
		"untyped noise":        `{"hello":"world"}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := protocol.Decode([]byte(raw))
			var protoErr *protocol.ProtocolError
			require.True(t, errors.As(err, &protoErr), "expected ProtocolError, got %v", err)
			require.Equal(t, raw, string(protoErr.Raw))
		})
	}
}

func TestEncodeStampsType(t *testing.T) {
	data, err := protocol.Encode(protocol.SetLanguage{Lang: "hi"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"set_lang","lang":"hi"}`, string(data))

	data, err = protocol.Encode(protocol.Chat{Text: "hey", Translate: true})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"message","text":"hey","translate":true}`, string(data))

	_, err = protocol.Encode(protocol.Unknown{Type: "ping"})
	require.Error(t, err)
}

func TestEncodeRelayOmitsAbsentLatency(t *testing.T) {
	data, err := protocol.Encode(protocol.Relay{Sender: "A", Original: "hi", Translated: "hi"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"message","sender":"A","original":"hi","translated":"hi"}`, string(data))
}
