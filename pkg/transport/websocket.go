package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/tidwall/gjson"
)

// Frame is the wire envelope: one websocket text message per event.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// WebsocketDialer dials endpoints with coder/websocket.
type WebsocketDialer struct {
	// HandshakeTimeout bounds the opening handshake. Zero leaves it to ctx.
	HandshakeTimeout time.Duration
	Logger           *log.Logger
}

// NewWebsocketDialer creates a dialer whose handshakes give up after timeout.
func NewWebsocketDialer(timeout time.Duration, logger *log.Logger) *WebsocketDialer {
	return &WebsocketDialer{HandshakeTimeout: timeout, Logger: logger}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialCtx := ctx
	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}
	ws, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	c := &wsConn{
		url:        url,
		ws:         ws,
		logger:     logger,
		dispatcher: NewDispatcher(),
		done:       make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	go c.readLoop()
	return c, nil
}

type wsConn struct {
	url        string
	ws         *websocket.Conn
	logger     *log.Logger
	dispatcher *Dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func (c *wsConn) URL() string           { return c.url }
func (c *wsConn) Done() <-chan struct{} { return c.done }

func (c *wsConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *wsConn) Once(event string) *Reply { return c.dispatcher.Once(event) }

func (c *wsConn) Emit(ctx context.Context, event string, payload any) error {
	select {
	case <-c.done:
		return c.Err()
	default:
	}
	if err := wsjson.Write(ctx, c.ws, Frame{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("emit %s to %s: %w", event, c.url, err)
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.dispatcher.Clear()
		c.setErr(ErrClosed)
		err = c.ws.Close(websocket.StatusNormalClosure, "client closing")
		c.cancel()
	})
	<-c.done
	return err
}

func (c *wsConn) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *wsConn) readLoop() {
	defer close(c.done)
	for {
		_, b, err := c.ws.Read(c.ctx)
		if err != nil {
			c.setErr(fmt.Errorf("read from %s: %w", c.url, err))
			return
		}

		event := gjson.GetBytes(b, "event")
		if !event.Exists() || event.Type != gjson.String {
			c.logger.Printf("dropping frame without event name from %s", c.url)
			continue
		}
		data := json.RawMessage(gjson.GetBytes(b, "data").Raw)
		if !c.dispatcher.Dispatch(event.String(), data) {
			c.logger.Printf("no handler armed for %s from %s, dropping", event.String(), c.url)
		}
	}
}
