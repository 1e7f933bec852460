// Package transport owns the client side of one real-time chat channel.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

// Options tunes dialing and keepalive.
type Options struct {
	HandshakeTimeout time.Duration // 握手超时
	ReadTimeout      time.Duration // 无数据读超时，收到 pong 后顺延
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

// DefaultOptions mirrors the relay's keepalive so neither side times the other out.
func DefaultOptions() *Options {
	return &Options{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Dialer opens channels addressed as {base}/ws/{role}.
type Dialer struct {
	baseURL string
	options *Options
	dialer  *websocket.Dialer
	log     *zap.SugaredLogger
}

// NewDialer creates a Dialer for the relay at baseURL (ws:// or wss://).
func NewDialer(baseURL string, options *Options, log *zap.SugaredLogger) *Dialer {
	if options == nil {
		options = DefaultOptions()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dialer{
		baseURL: strings.TrimRight(baseURL, "/"),
		options: options,
		dialer: &websocket.Dialer{
			HandshakeTimeout: options.HandshakeTimeout,
		},
		log: log,
	}
}

// Endpoint returns the channel URL for role.
func (d *Dialer) Endpoint(role chat.Role) string {
	return d.baseURL + "/ws/" + url.PathEscape(string(role))
}

// Open blocks until the channel is open or the dial fails. Cancelling ctx aborts an in-flight dial.
func (d *Dialer) Open(ctx context.Context, role chat.Role) (*Conn, error) {
	endpoint := d.Endpoint(role)
	c := &Conn{
		url:     endpoint,
		options: d.options,
		log:     d.log.With("endpoint", endpoint),
		done:    make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))

	ws, _, err := d.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		c.state.Store(int32(StateClosed))
		c.signalDone()
		return nil, &ConnectionError{URL: endpoint, Err: err}
	}

	ws.SetReadDeadline(time.Now().Add(d.options.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(d.options.ReadTimeout))
		return nil
	})

	c.ws = ws
	c.state.Store(int32(StateOpen))
	go c.pingLoop()

	c.log.Debugw("transport open")
	return c, nil
}

// Conn is one duplex channel. Send may be called from any goroutine; inbound frames are delivered
// sequentially from a single read goroutine.
type Conn struct {
	url     string
	ws      *websocket.Conn
	options *Options
	log     *zap.SugaredLogger

	state    atomic.Int32
	writeMu  sync.Mutex
	listen   sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Send writes one text frame. It fails with ErrNotReady unless the connection is open.
func (c *Conn) Send(frame []byte) error {
	if c.State() != StateOpen {
		return ErrNotReady
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.State() != StateOpen {
		return ErrNotReady
	}

	c.ws.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

// OnFrame registers the inbound handlers and starts delivery. onFrame runs once per frame in arrival
// order, never concurrently. onClose runs at most once, only when the peer or the network ends the
// connection; a local Close never reports it. Only the first registration takes effect.
func (c *Conn) OnFrame(onFrame func([]byte), onClose func(error)) {
	c.listen.Do(func() {
		go c.readLoop(onFrame, onClose)
	})
}

// Close is idempotent and never fails; errors from an already-dead socket are dropped.
func (c *Conn) Close() error {
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return nil
	}

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.log.Debugw("close frame not delivered", "error", err)
	}
	_ = c.ws.Close()

	c.state.Store(int32(StateClosed))
	c.signalDone()
	c.log.Debugw("transport closed")
	return nil
}

// Done is closed once the connection reaches Closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) readLoop(onFrame func([]byte), onClose func(error)) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.remoteClosed(err, onClose)
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.options.ReadTimeout))

		if onFrame != nil {
			onFrame(data)
		}
	}
}

func (c *Conn) remoteClosed(err error, onClose func(error)) {
	// Lost the race against a local Close: the caller already knows.
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosed)) {
		return
	}
	_ = c.ws.Close()
	c.signalDone()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Warnw("transport lost", "error", err)
	} else {
		c.log.Debugw("transport closed by peer", "error", err)
	}

	if onClose != nil {
		onClose(&ConnectionError{URL: c.url, Err: err})
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.options.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.options.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *Conn) signalDone() {
	c.doneOnce.Do(func() { close(c.done) })
}
