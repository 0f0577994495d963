/*
Package redkv implements the core server functionality for the RESP server.

Server owns the TCP listener, the shared Store, and the goroutine-per-
connection accept loop. Each client connection runs in its own goroutine:
it reads one frame, interprets it against the shared Store under a single
short-lived lock, writes the reply, and repeats until the client
disconnects or sends something the parser can't decode.
*/
package redkv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Server is the RESP-compatible server: network configuration, timeouts,
// connection tracking, and the shared keyspace it serves.
type Server struct {
	// Network configuration.
	Address string

	// Timeout configuration.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Resource limits.
	MaxConnections int

	// Monitoring.
	Logger        *zap.Logger
	ConnStateHook func(net.Conn, ConnState)

	// Store is the shared keyspace this server's commands operate on.
	Store *Store

	listener    net.Listener
	activeConns map[*Connection]struct{}
	connCount   atomic.Int64
	inShutdown  atomic.Bool
	mu          sync.RWMutex
	onShutdown  []func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewServer builds a Server bound to address, backed by a fresh Store using
// the real clock, with production-sane default timeouts.
func NewServer(address string) *Server {
	return NewServerWithStore(address, NewStore(RealClock))
}

// NewServerWithStore builds a Server over an existing Store; used by tests
// that need a mocked clock or a pre-seeded keyspace.
func NewServerWithStore(address string, store *Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	logger, _ := zap.NewProduction()

	return &Server{
		Address:        address,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxConnections: 1000,
		Logger:         logger,
		Store:          store,
		activeConns:    make(map[*Connection]struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Listen opens the TCP listener for Address. Idempotent.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("redkv: listen on %s: %w", s.Address, err)
	}
	s.listener = l
	s.Logger.Info("listening", zap.String("addr", s.Address))
	return nil
}

// Serve accepts connections until the listener closes or Shutdown is
// called, spawning one goroutine per accepted connection. It returns nil on
// a clean shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	defer s.listener.Close()

	s.startIdleChecker()

	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.Logger.Warn("accept error", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func(nc net.Conn) {
			defer s.wg.Done()

			// Check the connection limit after Accept to avoid a
			// TOCTOU race against concurrent acceptors.
			if s.MaxConnections > 0 && s.connCount.Add(1) > int64(s.MaxConnections) {
				s.connCount.Add(-1)
				nc.Close()
				s.Logger.Warn("connection limit reached", zap.Stringer("remote", nc.RemoteAddr()))
				return
			}
			defer s.connCount.Add(-1)

			s.handleConnection(nc)
		}(netConn)
	}
}

// Shutdown stops accepting new connections, closes tracked connections, runs
// shutdown hooks, and waits for in-flight connection goroutines to finish
// or ctx to expire, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.cancel()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			return err
		}
	}

	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.activeConns))
	for conn := range s.activeConns {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}

	s.mu.Lock()
	hooks := s.onShutdown
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// handleConnection runs the read-interpret-write loop for one accepted
// socket until EOF, a parser error, or server shutdown.
func (s *Server) handleConnection(netConn net.Conn) {
	connCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	conn := &Connection{
		conn:     netConn,
		reader:   bufio.NewReader(netConn),
		writer:   bufio.NewWriter(netConn),
		server:   s,
		ctx:      connCtx,
		cancel:   cancel,
		lastUsed: time.Now(),
	}
	conn.parser = NewParser(conn.reader)
	conn.state.Store(int32(StateNew))

	s.mu.Lock()
	s.activeConns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.activeConns, conn)
		s.mu.Unlock()
	}()

	conn.setState(StateActive)
	interp := NewInterpreter(s.Store)

	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		req, err := conn.readRequest()
		if err != nil {
			if !IsEOF(err) {
				s.Logger.Warn("read error", zap.Stringer("remote", netConn.RemoteAddr()), zap.Error(err))
			}
			return
		}

		conn.mu.Lock()
		conn.lastUsed = time.Now()
		conn.mu.Unlock()
		s.reactivate(conn)

		reply := interp.Interpret(req)

		if err := conn.writeReply(reply); err != nil {
			s.Logger.Warn("write error", zap.Stringer("remote", netConn.RemoteAddr()), zap.Error(err))
			return
		}
	}
}

// OnShutdown registers a cleanup hook run during Shutdown, before waiting
// on in-flight connections.
func (s *Server) OnShutdown(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onShutdown = append(s.onShutdown, f)
}

// ActiveConnections returns the current number of live connections.
func (s *Server) ActiveConnections() int64 {
	return s.connCount.Load()
}

// IsShutdown reports whether Shutdown has been called.
func (s *Server) IsShutdown() bool {
	return s.inShutdown.Load()
}

// TriggerIdleCheck runs one idle-connection sweep immediately; exported for
// tests that don't want to wait on the background ticker.
func (s *Server) TriggerIdleCheck() {
	s.checkIdleConnections()
}

// startIdleChecker runs a background sweep every 30s, demoting connections
// that have been Active past IdleTimeout to Idle.
func (s *Server) startIdleChecker() {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.checkIdleConnections()
			}
		}
	}()
}

func (s *Server) checkIdleConnections() {
	if s.IdleTimeout <= 0 {
		return
	}

	threshold := time.Now().Add(-s.IdleTimeout)

	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.activeConns))
	for conn := range s.activeConns {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		conn.mu.RLock()
		lastUsed := conn.lastUsed
		conn.mu.RUnlock()

		if conn.GetState() == StateActive && lastUsed.Before(threshold) {
			conn.setState(StateIdle)
		}
	}
}

// reactivate transitions conn back to Active if it had been marked Idle.
func (s *Server) reactivate(conn *Connection) {
	if conn.GetState() == StateIdle {
		conn.setState(StateActive)
	}
}
