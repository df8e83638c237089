package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	requestDeadline   = 5 * time.Second
	maxInflight       = 8
	inflightWait      = 2 * time.Second
	acceptErrorPause  = 500 * time.Millisecond
	acceptErrorBudget = 10
)

var (
	errServerStarted = errors.New("activation server already started")
	errNoHandler     = errors.New("activation server has no handler")
)

// Server answers activation requests sent by later launcher invocations.
// Each connection carries exactly one request and one response.
type Server struct {
	endpoint string
	handler  Handler

	mu       sync.Mutex
	listener net.Listener
	stop     context.CancelFunc

	conns    sync.WaitGroup
	inflight chan struct{}
}

// NewServer returns a Server for endpoint. An empty endpoint selects
// DefaultEndpoint. Nothing is opened until Start.
func NewServer(endpoint string, handler Handler) *Server {
	if endpoint == "" {
		endpoint = DefaultEndpoint()
	}
	return &Server{
		endpoint: endpoint,
		handler:  handler,
		inflight: make(chan struct{}, maxInflight),
	}
}

// Endpoint returns the address the server listens on.
func (s *Server) Endpoint() string {
	return s.endpoint
}

// Start opens the endpoint and serves requests until Stop.
func (s *Server) Start() error {
	if s.handler == nil {
		return errNoHandler
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errServerStarted
	}

	ln, err := listenEndpoint(s.endpoint)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.endpoint, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.listener, s.stop = ln, cancel
	s.conns.Go(func() { s.serve(ctx, ln) })
	slog.Debug("[DEBUG-IPC] activation server listening", "endpoint", s.endpoint)
	return nil
}

// Stop closes the endpoint and waits for in-flight requests. Calling Stop on
// a server that is not running is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	ln, cancel := s.listener, s.stop
	s.listener, s.stop = nil, nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	cancel()
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Warn("[DEBUG-IPC] closing activation endpoint failed", "error", err)
	}
	s.conns.Wait()
	return nil
}

func (s *Server) serve(ctx context.Context, ln net.Listener) {
	failures := 0
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			failures++
			slog.Debug("[DEBUG-IPC] accept failed", "error", err, "failures", failures)
			if failures > acceptErrorBudget {
				slog.Warn("[DEBUG-IPC] accept keeps failing, pausing", "error", err)
				time.Sleep(acceptErrorPause)
			}
			continue
		}
		failures = 0

		if !s.reserve(ctx) {
			reply(conn, Response{Error: "launcher busy, try again"})
			conn.Close()
			continue
		}
		s.conns.Go(func() {
			defer func() { <-s.inflight }()
			s.answer(conn)
		})
	}
}

// reserve takes one in-flight slot, giving up after inflightWait.
func (s *Server) reserve(ctx context.Context) bool {
	wait := time.NewTimer(inflightWait)
	defer wait.Stop()
	select {
	case s.inflight <- struct{}{}:
		return true
	case <-wait.C:
		slog.Warn("[DEBUG-IPC] too many pending activation requests, refusing one")
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Server) answer(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(requestDeadline)); err != nil {
		slog.Warn("[DEBUG-IPC] set request deadline failed", "error", err)
		return
	}

	req, err := readRequest(conn)
	switch {
	case errors.Is(err, io.EOF):
		slog.Debug("[DEBUG-IPC] peer closed before sending a request")
		return
	case err != nil:
		reply(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	slog.Debug("[DEBUG-IPC] activation request", "command", string(req.Command))
	reply(conn, s.handler.Handle(req))
}

func readRequest(conn net.Conn) (Request, error) {
	raw, err := readFrame(bufio.NewReaderSize(conn, maxFrameBytes+1))
	if err != nil {
		return Request{}, err
	}
	return decodeRequest(raw)
}

func reply(conn net.Conn, resp Response) {
	raw, err := encodeFrame(resp)
	if err != nil {
		slog.Warn("[DEBUG-IPC] encode response failed", "error", err)
		raw = []byte(`{"ok":false,"error":"response encoding failed"}` + "\n")
	}
	if _, err := conn.Write(raw); err != nil {
		slog.Debug("[DEBUG-IPC] write response failed", "error", err)
	}
}
