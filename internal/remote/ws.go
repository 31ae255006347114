package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gregiteen/ai-devices/internal/fragment"
)

// WSAction talks to the backend over a websocket, one JSON envelope per text
// message. Each submission opens its own connection.
type WSAction struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
}

// Submit dials URL, sends req and waits for the acknowledgement.
func (a *WSAction) Submit(ctx context.Context, req Request) (Stream, error) {
	dialer := a.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, a.URL, a.Header)
	if err != nil {
		return nil, fmt.Errorf("connect to backend: %w", err)
	}

	s := &WSStream{conn: conn}
	stop := s.interruptOn(ctx)
	defer stop()

	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, ctxOr(ctx, fmt.Errorf("write request: %w", err))
	}
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		conn.Close()
		return nil, ctxOr(ctx, fmt.Errorf("read response: %w", err))
	}
	if err := checkResponse(resp); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// WSStream reads fragment envelopes from one websocket.
type WSStream struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	done   bool
	failed error
}

// Next blocks until the next fragment arrives, the stream ends, or ctx is done.
func (s *WSStream) Next(ctx context.Context) (fragment.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, io.EOF
	}
	if s.failed != nil {
		return nil, s.failed
	}
	stop := s.interruptOn(ctx)
	defer stop()

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = fmt.Errorf("connection closed: %w", io.ErrUnexpectedEOF)
			}
			s.failed = ctxOr(ctx, fmt.Errorf("read fragment: %w", err))
			return nil, s.failed
		}
		if mt != websocket.TextMessage {
			continue
		}
		raw, err := decodeEnvelope(data)
		if errors.Is(err, errSkip) {
			continue
		}
		if errors.Is(err, io.EOF) {
			s.done = true
		}
		return raw, err
	}
}

// Close sends a close frame and shuts down the connection.
func (s *WSStream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *WSStream) interruptOn(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Unix(1, 0))
	})
}
