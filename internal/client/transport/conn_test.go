package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/lingualive/backend/internal/client/transport"
	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// newServer runs handle for every accepted connection and reports the request paths it saw.
func newServer(t *testing.T, handle func(*websocket.Conn)) (*httptest.Server, <-chan string) {
	t.Helper()
	paths := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv, paths
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestOpenAddressesRole(t *testing.T) {
	srv, paths := newServer(t, func(c *websocket.Conn) { c.ReadMessage() })
	dialer := transport.NewDialer(wsURL(srv), nil, nil)

	conn, err := dialer.Open(context.Background(), chat.RoleB)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, transport.StateOpen, conn.State())
	require.Equal(t, "/ws/B", <-paths)
}

func TestOpenUnreachableReturnsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	_, err := transport.NewDialer(url, nil, nil).Open(context.Background(), chat.RoleA)

	var connErr *transport.ConnectionError
	require.True(t, errors.As(err, &connErr), "expected ConnectionError, got %v", err)
	require.Equal(t, url+"/ws/A", connErr.URL)
}

func TestSendAndReceiveInOrder(t *testing.T) {
	srv, _ := newServer(t, func(c *websocket.Conn) {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		for _, reply := range []string{"one", "two", "three"} {
			c.WriteMessage(websocket.TextMessage, []byte(reply))
		}
		c.WriteMessage(websocket.TextMessage, data)
		c.ReadMessage()
	})

	conn, err := transport.NewDialer(wsURL(srv), nil, nil).Open(context.Background(), chat.RoleA)
	require.NoError(t, err)
	defer conn.Close()

	frames := make(chan string, 8)
	conn.OnFrame(func(b []byte) { frames <- string(b) }, func(error) {})

	require.NoError(t, conn.Send([]byte("echo")))

	var got []string
	for len(got) < 4 {
		select {
		case f := <-frames:
			got = append(got, f)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout, received %v", got)
		}
	}
	require.Equal(t, []string{"one", "two", "three", "echo"}, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, _ := newServer(t, func(c *websocket.Conn) { c.ReadMessage() })

	conn, err := transport.NewDialer(wsURL(srv), nil, nil).Open(context.Background(), chat.RoleA)
	require.NoError(t, err)

	closed := make(chan error, 1)
	conn.OnFrame(func([]byte) {}, func(err error) { closed <- err })

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.Equal(t, transport.StateClosed, conn.State())

	require.ErrorIs(t, conn.Send([]byte("late")), transport.ErrNotReady)

	select {
	case err := <-closed:
		t.Fatalf("local close must not be reported, got %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRemoteCloseIsReported(t *testing.T) {
	srv, _ := newServer(t, func(c *websocket.Conn) {
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	})

	conn, err := transport.NewDialer(wsURL(srv), nil, nil).Open(context.Background(), chat.RoleA)
	require.NoError(t, err)

	closed := make(chan error, 1)
	conn.OnFrame(func([]byte) {}, func(err error) { closed <- err })

	select {
	case err := <-closed:
		var connErr *transport.ConnectionError
		require.True(t, errors.As(err, &connErr))
	case <-time.After(2 * time.Second):
		t.Fatal("remote close not reported")
	}

	<-conn.Done()
	require.Equal(t, transport.StateClosed, conn.State())
	require.NoError(t, conn.Close())
}

func TestOpenHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv, _ := newServer(t, func(c *websocket.Conn) {})
	_, err := transport.NewDialer(wsURL(srv), nil, nil).Open(ctx, chat.RoleA)
	require.Error(t, err)
}
