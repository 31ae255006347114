package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gregiteen/ai-devices/internal/fragment"
)

// Action submits a request and returns its fragment stream.
type Action interface {
	Submit(ctx context.Context, req Request) (Stream, error)
}

// Stream yields fragments until io.EOF. Any other error is an abnormal end.
type Stream interface {
	Next(ctx context.Context) (fragment.Raw, error)
	Close() error
}

// SocketPath returns the default backend socket path.
func SocketPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "hark", "hark.sock")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "hark", "hark.sock")
}

// New returns the Action for a configured network. Supported networks are
// "unix", "tcp" and "ws".
func New(network, address string) (Action, error) {
	switch network {
	case "unix", "tcp":
		if network == "unix" && address == "" {
			address = SocketPath()
		}
		return &SocketAction{Network: network, Address: address}, nil
	case "ws", "wss":
		return &WSAction{URL: address}, nil
	}
	return nil, fmt.Errorf("unsupported network %q", network)
}

// SocketAction talks NDJSON over a stream socket. Each submission uses its
// own connection.
type SocketAction struct {
	Network string
	Address string
}

// Submit dials the backend, sends req and waits for the acknowledgement.
func (a *SocketAction) Submit(ctx context.Context, req Request) (Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, a.Network, a.Address)
	if err != nil {
		return nil, fmt.Errorf("connect to backend: %w", err)
	}

	s := newSocketStream(conn)
	resp, err := s.send(ctx, req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// SocketStream reads fragment envelopes from one connection.
type SocketStream struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
	done    bool
}

func newSocketStream(conn net.Conn) *SocketStream {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer
	return &SocketStream{conn: conn, scanner: scanner}
}

func (s *SocketStream) send(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}
	stop := s.interruptOn(ctx)
	defer stop()

	data = append(data, '\n')
	if _, err := s.conn.Write(data); err != nil {
		return Response{}, ctxOr(ctx, fmt.Errorf("write request: %w", err))
	}

	line, err := s.readLine()
	if err != nil {
		return Response{}, ctxOr(ctx, fmt.Errorf("read response: %w", err))
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return resp, nil
}

// Next blocks until the next fragment arrives, the stream ends, or ctx is done.
func (s *SocketStream) Next(ctx context.Context) (fragment.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, io.EOF
	}
	stop := s.interruptOn(ctx)
	defer stop()

	for {
		line, err := s.readLine()
		if err != nil {
			return nil, ctxOr(ctx, fmt.Errorf("read fragment: %w", err))
		}
		raw, err := decodeEnvelope(line)
		if errors.Is(err, errSkip) {
			continue
		}
		if errors.Is(err, io.EOF) {
			s.done = true
		}
		return raw, err
	}
}

// Close shuts down the connection.
func (s *SocketStream) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// readLine returns the next line. A connection closed before the done
// envelope reads as io.ErrUnexpectedEOF.
func (s *SocketStream) readLine() ([]byte, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("connection closed: %w", io.ErrUnexpectedEOF)
	}
	return s.scanner.Bytes(), nil
}

// interruptOn unblocks pending reads and writes once ctx is done.
func (s *SocketStream) interruptOn(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		s.conn.SetDeadline(time.Unix(1, 0))
	})
}

// ctxOr prefers the context error when ctx ended the operation.
func ctxOr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}
