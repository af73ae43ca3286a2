package switcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	pkglog "github.com/dunkelstern/obs-touchosc/pkg/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrNotConnected  = errors.New("switcher not connected")
	ErrRequestFailed = errors.New("switcher request failed")
	ErrAuthFailed    = errors.New("switcher authentication failed")
)

// Config holds connection settings for the obs-websocket server.
type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
}

// EventHandler receives push events. It runs on the client's read goroutine
// and must not block.
type EventHandler func(Event)

// Event is a push event from the switcher, decoded lazily by the receiver.
type Event struct {
	UpdateType string
	Raw        json.RawMessage
}

// Decode unmarshals the event body into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Raw, v)
}

// envelope holds the fields shared by responses and events.
type envelope struct {
	MessageID  string `json:"message-id"`
	UpdateType string `json:"update-type"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

type response struct {
	raw json.RawMessage
	err error
}

// Client is a persistent obs-websocket (protocol 4.x) connection offering
// blocking requests and push-event delivery.
type Client struct {
	cfg Config
	url string

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan response
	handlers map[string]EventHandler
	closed   bool
	done     chan struct{}
}

// NewClient creates a new switcher client. Call Connect before issuing requests.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}

	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}

	return &Client{
		cfg:      cfg,
		url:      u.String(),
		pending:  make(map[string]chan response),
		handlers: make(map[string]EventHandler),
		done:     make(chan struct{}),
	}
}

// Connect dials the switcher, starts the read loop and authenticates when
// the server asks for it.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial switcher %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readPump()
	if c.cfg.PingInterval > 0 {
		go c.pingPump()
	}

	if err := c.authenticate(ctx); err != nil {
		c.Close()
		return err
	}

	return nil
}

// Done is closed when the connection is lost or closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Connected reports whether the connection is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Register installs the handler for one update type, replacing any previous one.
func (c *Client) Register(updateType string, h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[updateType] = h
}

// Unregister removes the handler for one update type.
func (c *Client) Unregister(updateType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, updateType)
}

// Call sends a request and blocks until the matching response arrives, ctx
// is done or the request timeout elapses. When out is non-nil the response
// body is decoded into it.
func (c *Client) Call(ctx context.Context, requestType string, params map[string]interface{}, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	id := uuid.New().String()
	msg := make(map[string]interface{}, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["request-type"] = requestType
	msg["message-id"] = id

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", requestType, err)
	}

	ch := make(chan response, 1)
	c.mu.Lock()
	if c.conn == nil || c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(conn, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", requestType, err)
	}
	l := pkglog.Component("switcher")
	l.Debug().Str(pkglog.FieldRequest, requestType).Str(pkglog.FieldMessageID, id).Msg("request sent")

	select {
	case resp := <-ch:
		if resp.err != nil {
			return fmt.Errorf("%s: %w", requestType, resp.err)
		}
		if out != nil {
			if err := json.Unmarshal(resp.raw, out); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", requestType, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", requestType, ctx.Err())
	case <-c.done:
		return fmt.Errorf("%s: %w", requestType, ErrNotConnected)
	}
}

// Close closes the connection. Pending requests fail with ErrNotConnected.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	close(c.done)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(c.cfg.WriteWait))
	return conn.Close()
}

func (c *Client) write(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readPump delivers responses to waiting callers and events to handlers.
func (c *Client) readPump() {
	l := pkglog.Component("switcher")
	defer c.Close()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if c.cfg.PongWait > 0 {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
			return nil
		})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Error().Err(err).Msg("switcher connection lost")
			}
			return
		}

		if c.cfg.PongWait > 0 {
			conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			l.Warn().Err(err).Msg("dropping malformed switcher message")
			continue
		}

		switch {
		case env.UpdateType != "":
			c.dispatchEvent(Event{UpdateType: env.UpdateType, Raw: data})
		case env.MessageID != "":
			c.deliver(env, data)
		}
	}
}

func (c *Client) dispatchEvent(e Event) {
	c.mu.Lock()
	h := c.handlers[e.UpdateType]
	c.mu.Unlock()

	if h != nil {
		h(e)
	}
}

func (c *Client) deliver(env envelope, data []byte) {
	c.mu.Lock()
	ch, ok := c.pending[env.MessageID]
	c.mu.Unlock()

	if !ok {
		l := pkglog.Component("switcher")
		l.Debug().Str(pkglog.FieldMessageID, env.MessageID).Msg("dropping response without caller")
		return
	}

	resp := response{raw: data}
	if env.Status != "ok" {
		resp.err = fmt.Errorf("%w: %s", ErrRequestFailed, env.Error)
	}
	ch <- resp
}

func (c *Client) pingPump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}
