package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeBroker is an in-process rosbridge server
type fakeBroker struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	frames   chan map[string]any
	conns    chan *websocket.Conn
}

func newFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()

	b := &fakeBroker{
		frames: make(chan map[string]any, 64),
		conns:  make(chan *websocket.Conn, 4),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBroker) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.conns <- conn

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		b.frames <- frame
	}
}

func (b *fakeBroker) port(t *testing.T) int {
	t.Helper()

	u, err := url.Parse(b.server.URL)
	if err != nil {
		t.Fatalf("bad server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("bad server port: %v", err)
	}
	return port
}

func (b *fakeBroker) accept(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-b.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func (b *fakeBroker) next(t *testing.T) map[string]any {
	t.Helper()

	select {
	case frame := <-b.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func (b *fakeBroker) none(t *testing.T, wait time.Duration) {
	t.Helper()

	select {
	case frame := <-b.frames:
		t.Errorf("unexpected frame %v", frame)
	case <-time.After(wait):
	}
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("broker write failed: %v", err)
	}
}

// stateRecorder collects state transitions in order
type stateRecorder chan State

func recordStates(c *Client) stateRecorder {
	ch := make(stateRecorder, 32)
	c.OnStateChange(func(s State) { ch <- s })
	return ch
}

func (r stateRecorder) expect(t *testing.T, want ...State) {
	t.Helper()

	for _, w := range want {
		select {
		case got := <-r:
			if got != w {
				t.Fatalf("state = %v, want %v", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for state %v", w)
		}
	}
}

// connectedClient returns a client connected to a fresh broker
func connectedClient(t *testing.T) (*Client, *fakeBroker, *websocket.Conn, stateRecorder) {
	t.Helper()

	broker := newFakeBroker(t)
	client := NewClient(Config{Port: broker.port(t)})
	t.Cleanup(client.Disconnect)

	states := recordStates(client)
	client.Connect("127.0.0.1")
	conn := broker.accept(t)
	states.expect(t, StateConnecting, StateConnected)
	return client, broker, conn, states
}
