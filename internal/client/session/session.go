// Package session implements the client side of a bilingual chat: it negotiates the display
// language with the relay, gates chat sends on that negotiation and keeps the transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/client/transport"
	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
	"github.com/zhouzirui/lingualive/backend/pkg/protocol"
)

// State is the negotiation state of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateNegotiating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateNegotiating:
		return "negotiating"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrNotReady is returned by SendChat outside Ready or when the transport is not open.
	ErrNotReady = transport.ErrNotReady
	// ErrNegotiationTimeout is reported when no lang_ack arrives in time.
	ErrNegotiationTimeout = errors.New("language negotiation timed out")
	// ErrClosed is returned once Run has returned.
	ErrClosed = errors.New("session closed")
)

// Connection is the transport a Session drives. *transport.Conn satisfies it.
type Connection interface {
	Send(frame []byte) error
	OnFrame(onFrame func([]byte), onClose func(error))
	Close() error
	State() transport.State
}

// Opener opens a Connection for a role, blocking until it is open or failed.
type Opener interface {
	Open(ctx context.Context, role chat.Role) (Connection, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, role chat.Role) (Connection, error)

func (f OpenerFunc) Open(ctx context.Context, role chat.Role) (Connection, error) {
	return f(ctx, role)
}

// DialerOpener opens websocket connections through d.
func DialerOpener(d *transport.Dialer) Opener {
	return OpenerFunc(func(ctx context.Context, role chat.Role) (Connection, error) {
		conn, err := d.Open(ctx, role)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// Config bounds negotiation.
type Config struct {
	// NegotiationTimeout is how long to wait for lang_ack. Zero waits forever.
	NegotiationTimeout time.Duration
	// NegotiationRetries is how many times a timed-out negotiation is retried on a fresh connection.
	NegotiationRetries int
	// CoalesceDelay is how long a reconnect waits before dialing. Changes arriving within it restart
	// the wait, so a burst of changes dials once with the last value. Zero uses the default.
	CoalesceDelay time.Duration
	QueueSize     int
}

// DefaultConfig returns a 5s negotiation timeout with a single retry.
func DefaultConfig() Config {
	return Config{
		NegotiationTimeout: 5 * time.Second,
		NegotiationRetries: 1,
		CoalesceDelay:      50 * time.Millisecond,
		QueueSize:          64,
	}
}

// Hooks let presentation code observe the session. They run on the session loop and must not
// call back into the Session synchronously.
type Hooks struct {
	OnMessage     func(chat.Message)
	OnStateChange func(state State, err error)
}

// Session binds one participant role and language preference to an exclusively owned connection.
// All state transitions happen on the goroutine running Run.
type Session struct {
	id       string
	opener   Opener
	cfg      Config
	log      *zap.SugaredLogger
	hooks    Hooks
	prefs    *PreferenceStore
	messages *MessageLog

	events  chan event
	done    chan struct{}
	running atomic.Bool

	mu    sync.RWMutex
	role  chat.Role
	state State

	// Owned by the Run goroutine.
	ctx         context.Context
	gen         uint64
	conn        Connection
	cancelOpen  context.CancelFunc
	negotiating chat.Language
	timer       *time.Timer
	dialTimer   *time.Timer
	retries     int
}

// New creates a disconnected Session. Call Run to connect.
func New(opener Opener, role chat.Role, pref chat.LanguagePreference, cfg Config, log *zap.SugaredLogger, hooks Hooks) *Session {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.CoalesceDelay <= 0 {
		cfg.CoalesceDelay = DefaultConfig().CoalesceDelay
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		opener:   opener,
		cfg:      cfg,
		log:      log.With("session", id),
		hooks:    hooks,
		prefs:    NewPreferenceStore(pref),
		messages: NewMessageLog(),
		events:   make(chan event, cfg.QueueSize),
		done:     make(chan struct{}),
		role:     role,
		state:    StateDisconnected,
	}
}

// ID returns the session's identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current negotiation state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Role returns the participant role currently in effect.
func (s *Session) Role() chat.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Preference returns the local language preference.
func (s *Session) Preference() chat.LanguagePreference {
	return s.prefs.Get()
}

// Snapshot returns a copy of the transcript.
func (s *Session) Snapshot() []chat.Message {
	return s.messages.Snapshot()
}

// SetLanguage changes the display language. A change reconnects and renegotiates.
func (s *Session) SetLanguage(lang chat.Language) error {
	changed, err := s.prefs.SetLanguage(lang)
	if err != nil || !changed {
		return err
	}
	return s.enqueue(reconfigureEvent{reason: "language changed"})
}

// SetRole switches the participant role. A change reconnects on the new role's channel.
func (s *Session) SetRole(role chat.Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	return s.enqueue(reconfigureEvent{reason: "role changed", role: role})
}

// SetTranslation toggles whether outgoing messages ask for translation. It does not reconnect.
func (s *Session) SetTranslation(enabled bool) {
	s.prefs.SetTranslation(enabled)
}

// Reconnect tears down the current connection, if any, and negotiates again.
func (s *Session) Reconnect() error {
	return s.enqueue(reconfigureEvent{reason: "reconnect requested"})
}

// SendChat sends text once. Blank text is ignored. Outside Ready the message is dropped and
// ErrNotReady returned; nothing is queued for later.
func (s *Session) SendChat(text string, translate bool) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !s.running.Load() {
		return ErrNotReady
	}

	reply := make(chan error, 1)
	if err := s.enqueue(sendEvent{text: text, translate: translate, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Run connects and processes events until ctx is cancelled. A Session runs at most once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	s.ctx = ctx
	s.log.Infow("session started", "role", s.Role(), "language", s.prefs.Get().Language)

	s.reconnect("session started")
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

type event interface{}

type reconfigureEvent struct {
	reason string
	role   chat.Role
}

type connectEvent struct{ gen uint64 }

type openedEvent struct {
	gen  uint64
	lang chat.Language
	conn Connection
	err  error
}

type frameEvent struct {
	gen  uint64
	data []byte
}

type closedEvent struct {
	gen uint64
	err error
}

type timeoutEvent struct{ gen uint64 }

type sendEvent struct {
	text      string
	translate bool
	reply     chan error
}

func (s *Session) enqueue(ev event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) handle(ev event) {
	switch e := ev.(type) {
	case reconfigureEvent:
		s.handleReconfigure(e)
	case connectEvent:
		s.handleConnect(e)
	case openedEvent:
		s.handleOpened(e)
	case frameEvent:
		s.handleFrame(e)
	case closedEvent:
		s.handleClosed(e)
	case timeoutEvent:
		s.handleTimeout(e)
	case sendEvent:
		e.reply <- s.sendChat(e.text, e.translate)
	}
}

func (s *Session) handleReconfigure(e reconfigureEvent) {
	if e.role != "" {
		if e.role == s.Role() {
			return
		}
		s.mu.Lock()
		s.role = e.role
		s.mu.Unlock()
	}
	s.retries = 0
	s.reconnect(e.reason)
}

// reconnect drops the current generation and schedules a fresh open after CoalesceDelay. Each
// reconnect replaces the pending one, so only the newest generation dials.
func (s *Session) reconnect(reason string) {
	s.dropConnection()
	s.gen++
	s.log.Debugw("reconnecting", "reason", reason, "generation", s.gen)
	s.setState(StateNegotiating, nil)

	gen := s.gen
	s.dialTimer = time.AfterFunc(s.cfg.CoalesceDelay, func() {
		s.enqueue(connectEvent{gen: gen})
	})
}

func (s *Session) dropConnection() {
	s.stopTimer()
	if s.dialTimer != nil {
		s.dialTimer.Stop()
		s.dialTimer = nil
	}
	if s.cancelOpen != nil {
		s.cancelOpen()
		s.cancelOpen = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Debugw("close failed", "error", err)
		}
		s.conn = nil
	}
}

func (s *Session) handleConnect(e connectEvent) {
	if e.gen != s.gen {
		return
	}
	s.dialTimer = nil

	role := s.Role()
	lang := s.prefs.Get().Language
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelOpen = cancel

	go func(gen uint64) {
		conn, err := s.opener.Open(ctx, role)
		if enqErr := s.enqueue(openedEvent{gen: gen, lang: lang, conn: conn, err: err}); enqErr != nil && conn != nil {
			_ = conn.Close()
		}
	}(e.gen)
}

func (s *Session) handleOpened(e openedEvent) {
	if e.gen != s.gen {
		if e.conn != nil {
			_ = e.conn.Close()
		}
		return
	}
	if s.cancelOpen != nil {
		s.cancelOpen()
		s.cancelOpen = nil
	}
	if e.err != nil {
		s.log.Warnw("connect failed", "error", e.err)
		s.setState(StateDisconnected, e.err)
		return
	}

	s.conn = e.conn
	gen := e.gen
	s.conn.OnFrame(
		func(data []byte) { s.enqueue(frameEvent{gen: gen, data: data}) },
		func(err error) { s.enqueue(closedEvent{gen: gen, err: err}) },
	)

	s.negotiating = e.lang
	data, err := protocol.Encode(protocol.NewSetLanguage(string(e.lang)))
	if err == nil {
		err = s.conn.Send(data)
	}
	if err != nil {
		s.log.Warnw("set_lang not sent", "error", err)
		s.dropConnection()
		s.setState(StateDisconnected, err)
		return
	}
	s.armTimer(gen)
}

func (s *Session) handleFrame(e frameEvent) {
	if e.gen != s.gen || s.conn == nil {
		return
	}

	frame, err := protocol.Decode(e.data)
	if err != nil {
		s.log.Warnw("dropping frame", "error", err)
		return
	}

	switch f := frame.(type) {
	case protocol.LanguageAck:
		if s.State() != StateNegotiating {
			return
		}
		s.stopTimer()
		s.retries = 0
		s.log.Infow("language negotiated", "language", s.negotiating)
		s.setState(StateReady, nil)
	case protocol.Relay:
		msg := toMessage(f)
		s.messages.Append(msg)
		if s.hooks.OnMessage != nil {
			s.hooks.OnMessage(msg)
		}
	case protocol.Error:
		s.log.Warnw("relay rejected a frame", "message", f.Message)
	default:
		s.log.Debugw("ignoring frame", "type", frame.FrameType())
	}
}

func (s *Session) handleClosed(e closedEvent) {
	if e.gen != s.gen {
		return
	}
	s.stopTimer()
	s.conn = nil
	s.log.Warnw("connection closed", "error", e.err)
	s.setState(StateDisconnected, e.err)
}

func (s *Session) handleTimeout(e timeoutEvent) {
	if e.gen != s.gen || s.State() != StateNegotiating {
		return
	}
	s.dropConnection()
	s.setState(StateDisconnected, ErrNegotiationTimeout)

	if s.retries < s.cfg.NegotiationRetries {
		s.retries++
		s.reconnect(fmt.Sprintf("negotiation retry %d", s.retries))
	}
}

func (s *Session) sendChat(text string, translate bool) error {
	if s.State() != StateReady || s.conn == nil || s.conn.State() != transport.StateOpen {
		return ErrNotReady
	}

	data, err := protocol.Encode(protocol.NewChat(text, translate))
	if err != nil {
		return err
	}
	if err := s.conn.Send(data); err != nil {
		s.log.Warnw("chat message dropped", "error", err)
		return err
	}
	return nil
}

func (s *Session) armTimer(gen uint64) {
	if s.cfg.NegotiationTimeout <= 0 {
		return
	}
	s.timer = time.AfterFunc(s.cfg.NegotiationTimeout, func() {
		s.enqueue(timeoutEvent{gen: gen})
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) setState(state State, err error) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev == state && err == nil {
		return
	}
	s.log.Debugw("state changed", "from", prev, "to", state, "error", err)
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(state, err)
	}
}

func (s *Session) shutdown() {
	s.dropConnection()
	s.gen++
	s.setState(StateDisconnected, nil)
	close(s.done)

	// Connections that finished opening after the loop stopped.
	for {
		select {
		case ev := <-s.events:
			if opened, ok := ev.(openedEvent); ok && opened.conn != nil {
				_ = opened.conn.Close()
			}
			if send, ok := ev.(sendEvent); ok {
				send.reply <- ErrClosed
			}
		default:
			s.log.Infow("session stopped")
			return
		}
	}
}

func toMessage(f protocol.Relay) chat.Message {
	sentAt := time.Now().UTC()
	if f.Timestamp > 0 {
		sec := int64(f.Timestamp)
		nsec := int64((f.Timestamp - float64(sec)) * float64(time.Second))
		sentAt = time.Unix(sec, nsec).UTC()
	}
	return chat.Message{
		ID:         f.ID,
		Sender:     chat.Role(f.Sender),
		Original:   f.Original,
		Translated: f.Translated,
		TargetLang: chat.Language(f.TargetLang),
		SourceLang: f.SourceLang,
		LatencyMs:  f.Latency,
		SentAt:     sentAt,
	}
}
