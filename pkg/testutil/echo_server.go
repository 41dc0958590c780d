package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"location-tracker/pkg/transport"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EchoServer is a websocket backend answering each request event with a
// single reply event carrying the same payload.
type EchoServer struct {
	Server *httptest.Server

	RequestEvent string
	ReplyEvent   string

	// ReplyDelay is waited before each reply.
	ReplyDelay time.Duration
	// HandshakeDelay is waited before the websocket upgrade.
	HandshakeDelay time.Duration
	// Silent makes the server read requests without ever replying.
	Silent bool
	// Refuse makes every upgrade fail with 503.
	Refuse atomic.Bool

	connections atomic.Int64
	requests    atomic.Int64

	mu     sync.Mutex
	active map[*websocket.Conn]struct{}
}

// NewEchoServer starts a server on a loopback port.
func NewEchoServer(requestEvent, replyEvent string) *EchoServer {
	s := &EchoServer{
		RequestEvent: requestEvent,
		ReplyEvent:   replyEvent,
		active:       make(map[*websocket.Conn]struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the ws:// address of the server.
func (s *EchoServer) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Close drops every live session and shuts the server down.
func (s *EchoServer) Close() {
	s.Drop()
	s.Server.Close()
}

// Drop abruptly closes every live websocket session, leaving the listener up.
func (s *EchoServer) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ws := range s.active {
		_ = ws.CloseNow()
	}
}

// Connections returns how many websocket sessions were accepted.
func (s *EchoServer) Connections() int64 { return s.connections.Load() }

// Requests returns how many request events were read.
func (s *EchoServer) Requests() int64 { return s.requests.Load() }

func (s *EchoServer) handle(w http.ResponseWriter, r *http.Request) {
	if s.HandshakeDelay > 0 {
		time.Sleep(s.HandshakeDelay)
	}
	if s.Refuse.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	s.track(ws, true)
	defer func() {
		s.track(ws, false)
		_ = ws.CloseNow()
	}()
	s.connections.Add(1)

	ctx := r.Context()
	for {
		var in inboundFrame
		if err := wsjson.Read(ctx, ws, &in); err != nil {
			return
		}
		if in.Event != s.RequestEvent {
			continue
		}
		s.requests.Add(1)
		if s.Silent {
			continue
		}
		if s.ReplyDelay > 0 {
			select {
			case <-time.After(s.ReplyDelay):
			case <-ctx.Done():
				return
			}
		}
		writeCtx, cancel := context.WithTimeout(ctx, time.Second)
		err := wsjson.Write(writeCtx, ws, transport.Frame{Event: s.ReplyEvent, Data: in.Data})
		cancel()
		if err != nil {
			return
		}
	}
}

func (s *EchoServer) track(ws *websocket.Conn, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live {
		s.active[ws] = struct{}{}
	} else {
		delete(s.active, ws)
	}
}
