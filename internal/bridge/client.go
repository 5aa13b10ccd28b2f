package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/logging"
	"github.com/duckielink/duckie/internal/msgs"
)

const (
	// DefaultPort is the rosbridge websocket port on a Duckiebot
	DefaultPort = 9090

	// DefaultDialTimeout bounds one connection attempt
	DefaultDialTimeout = 15 * time.Second
)

// State is the connection state of a Client
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler receives the msg field of each message on a subscribed topic.
// Handlers run on the connection's read goroutine and must not block.
type Handler func(msg json.RawMessage)

// Config configures a Client. Zero values select the defaults.
type Config struct {
	Port        int
	DialTimeout time.Duration
	Dialer      Dialer
	Types       *msgs.Registry
}

// URL returns the rosbridge endpoint for a device address
func URL(ip string, port int) string {
	return "ws://" + net.JoinHostPort(strings.TrimSpace(ip), strconv.Itoa(port))
}

type topicSubs struct {
	id       string
	typ      string
	handlers []*subscription
}

type subscription struct {
	handler Handler
}

type pendingCall struct {
	service string
	result  chan callResult
}

type callResult struct {
	values json.RawMessage
	err    error
}

// Client is a rosbridge connection manager. All methods are safe for
// concurrent use.
type Client struct {
	port        int
	dialTimeout time.Duration
	dialer      Dialer
	types       *msgs.Registry

	mu         sync.Mutex
	state      State
	url        string
	conn       Conn
	gen        uint64
	cancelDial context.CancelFunc
	advertised map[string]bool
	subs       map[string]*topicSubs
	pending    map[string]*pendingCall

	observers map[int]func(State)
	nextObsID int
	events    dispatcher
}

// NewClient creates an idle client
func NewClient(cfg Config) *Client {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &WebSocketDialer{}
	}
	if cfg.Types == nil {
		cfg.Types = msgs.DefaultRegistry()
	}

	return &Client{
		port:        cfg.Port,
		dialTimeout: cfg.DialTimeout,
		dialer:      cfg.Dialer,
		types:       cfg.Types,
		advertised:  make(map[string]bool),
		subs:        make(map[string]*topicSubs),
		pending:     make(map[string]*pendingCall),
		observers:   make(map[int]func(State)),
	}
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// URL returns the endpoint of the current or last connection attempt
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// OnStateChange registers fn to be called after every state transition.
// Calls are made in transition order from a separate goroutine. The
// returned function removes the observer.
func (c *Client) OnStateChange(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

// Connect closes any existing connection and starts connecting to the
// rosbridge server at ip. It returns immediately.
func (c *Client) Connect(ip string) {
	url := URL(ip, c.port)

	c.mu.Lock()
	old := c.teardownLocked()
	gen := c.gen
	ctx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	c.cancelDial = cancel
	c.url = url
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	closeConn(old, "replaced")
	logging.LogConnection(url, "connecting")

	go c.dial(ctx, cancel, gen, url)
}

// Disconnect closes the connection or cancels the attempt in progress.
// It is idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	old := c.teardownLocked()
	c.setStateLocked(StateIdle)
	url := c.url
	c.mu.Unlock()

	if old != nil {
		closeConn(old, "disconnect")
		logging.LogConnection(url, "disconnected")
	}
}

func (c *Client) dial(ctx context.Context, cancel context.CancelFunc, gen uint64, url string) {
	defer cancel()

	conn, err := c.dialer.Dial(ctx, url)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		closeConn(conn, "stale dial")
		return
	}
	c.cancelDial = nil
	if err != nil {
		c.setStateLocked(StateFailed)
		c.mu.Unlock()
		logging.Warn("Bridge connection failed", zap.String("url", url), zap.Error(err))
		return
	}
	c.conn = conn
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	logging.LogConnection(url, "connected")
	c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(gen, err)
			return
		}
		c.route(gen, data)
	}
}

func (c *Client) connectionLost(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		// Closed locally; the transition already happened
		c.mu.Unlock()
		return
	}
	old := c.teardownLocked()
	next := StateFailed
	if isCleanClose(err) {
		next = StateIdle
	}
	c.setStateLocked(next)
	url := c.url
	c.mu.Unlock()

	closeConn(old, "read error")
	if next == StateIdle {
		logging.LogConnection(url, "closed by server")
	} else {
		logging.Warn("Bridge connection lost", zap.String("url", url), zap.Error(err))
	}
}

// teardownLocked forgets the current connection and everything scoped to
// it. The caller closes the returned connection after unlocking.
func (c *Client) teardownLocked() Conn {
	c.gen++
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}

	conn := c.conn
	c.conn = nil

	for id, call := range c.pending {
		call.result <- callResult{err: ErrConnectionClosed}
		delete(c.pending, id)
	}
	c.subs = make(map[string]*topicSubs)
	c.advertised = make(map[string]bool)
	return conn
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s

	observers := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.events.post(func() {
		for _, fn := range observers {
			fn(s)
		}
	})
}

func closeConn(conn Conn, reason string) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		logging.Debug("Bridge close failed", zap.String("reason", reason), zap.Error(err))
	}
}

// sendLocked writes one frame on the current connection
func (c *Client) sendLocked(op, topic string, frame any) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", op, err)
	}
	if err := c.conn.WriteMessage(data); err != nil {
		return err
	}

	logging.LogBridgeMessage("sent", op, topic, len(data))
	return nil
}

// Publish sends payload on topic. The payload is checked against typ
// first. While disconnected the message is dropped and ErrNotConnected is
// returned.
func (c *Client) Publish(topic, typ string, payload any) error {
	raw, err := c.types.Validate(typ, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected {
		return ErrNotConnected
	}

	if !c.advertised[topic] {
		adv := AdvertiseMsg{
			Op:    OpAdvertise,
			ID:    "advertise:" + topic + ":" + uuid.NewString(),
			Topic: topic,
			Type:  typ,
		}
		if err := c.sendLocked(OpAdvertise, topic, adv); err != nil {
			return err
		}
		c.advertised[topic] = true
	}

	return c.sendLocked(OpPublish, topic, PublishMsg{
		Op:    OpPublish,
		Topic: topic,
		Type:  typ,
		Msg:   raw,
	})
}

// Subscribe registers handler for messages on topic. The returned function
// removes this registration only; it is safe to call more than once. While
// disconnected it returns a no-op function and ErrNotConnected. Every
// registration on a topic must use the same type.
func (c *Client) Subscribe(topic, typ string, handler Handler) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected {
		return func() {}, ErrNotConnected
	}

	entry := c.subs[topic]
	if entry != nil && entry.typ != typ {
		logging.Debug("Subscribe type mismatch",
			zap.String("topic", topic),
			zap.String("type", typ),
			zap.String("subscribed_type", entry.typ),
		)
		return func() {}, fmt.Errorf("%s as %s, not %s: %w", topic, entry.typ, typ, ErrTypeMismatch)
	}
	if entry == nil {
		entry = &topicSubs{
			id:  "subscribe:" + topic + ":" + uuid.NewString(),
			typ: typ,
		}
		frame := SubscribeMsg{Op: OpSubscribe, ID: entry.id, Topic: topic, Type: typ}
		if err := c.sendLocked(OpSubscribe, topic, frame); err != nil {
			return func() {}, err
		}
		c.subs[topic] = entry
	}

	sub := &subscription{handler: handler}
	entry.handlers = append(entry.handlers, sub)

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(topic, entry, sub) })
	}, nil
}

func (c *Client) unsubscribe(topic string, entry *topicSubs, sub *subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Registrations from an earlier connection are already gone
	if c.subs[topic] != entry {
		return
	}

	for i, s := range entry.handlers {
		if s == sub {
			entry.handlers = append(entry.handlers[:i], entry.handlers[i+1:]...)
			break
		}
	}
	if len(entry.handlers) > 0 {
		return
	}

	delete(c.subs, topic)
	frame := UnsubscribeMsg{Op: OpUnsubscribe, ID: entry.id, Topic: topic}
	if err := c.sendLocked(OpUnsubscribe, topic, frame); err != nil {
		logging.Debug("Unsubscribe not sent", zap.String("topic", topic), zap.Error(err))
	}
}

// CallService calls a ROS service and waits for its response. No timeout
// is applied beyond ctx. A failure reported by the server is returned as
// *ServiceError.
func (c *Client) CallService(ctx context.Context, service, typ string, args any) (json.RawMessage, error) {
	raw, err := c.types.ValidateRequest(typ, args)
	if err != nil {
		return nil, err
	}

	id := "call_service:" + service + ":" + uuid.NewString()
	call := &pendingCall{service: service, result: make(chan callResult, 1)}

	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[id] = call
	frame := CallServiceMsg{Op: OpCallService, ID: id, Service: service, Type: typ, Args: raw}
	if err := c.sendLocked(OpCallService, service, frame); err != nil {
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	select {
	case res := <-call.result:
		return res.values, res.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// route dispatches one inbound frame
func (c *Client) route(gen uint64, data []byte) {
	in, err := parseInbound(data)
	if err != nil {
		logging.Debug("Discarding bridge frame", zap.Error(err), zap.Int("size", len(data)))
		return
	}
	logging.LogBridgeMessage("received", in.op, in.topic, len(data))

	switch in.op {
	case OpPublish:
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		var handlers []Handler
		if entry := c.subs[in.topic]; entry != nil {
			handlers = make([]Handler, 0, len(entry.handlers))
			for _, s := range entry.handlers {
				handlers = append(handlers, s.handler)
			}
		}
		c.mu.Unlock()

		for _, h := range handlers {
			h(in.msg)
		}

	case OpServiceResponse:
		c.mu.Lock()
		call, ok := c.pending[in.id]
		delete(c.pending, in.id)
		c.mu.Unlock()

		if !ok {
			logging.Debug("Response for unknown call", zap.String("id", in.id))
			return
		}
		if !in.result {
			call.result <- callResult{err: &ServiceError{Service: call.service, Message: in.failure}}
			return
		}
		call.result <- callResult{values: in.values}

	case OpStatus:
		logging.Warn("Bridge status",
			zap.String("level", in.level),
			zap.String("id", in.id),
			zap.String("msg", in.text),
		)

	default:
		logging.Debug("Unhandled bridge op", zap.String("op", in.op))
	}
}
