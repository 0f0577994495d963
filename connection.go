/*
Package redkv implements client connection management for the RESP server.

Connection wraps a network connection with buffered RESP I/O, atomic
connection-state tracking, and once-only cleanup. Connection instances are
created by Server during accept and run their whole lifecycle inside a
single goroutine: one read, one interpret, one write, per command, in
order, for as long as the client keeps sending well-formed requests.
*/
package redkv

import (
	"bufio"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Connection represents a client connection to the server.
type Connection struct {
	conn      net.Conn
	reader    *bufio.Reader
	writer    *bufio.Writer
	parser    *Parser
	server    *Server
	state     atomic.Int32
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	lastUsed  time.Time
}

// setState atomically updates the connection state and fires the server's
// ConnStateHook, if one is configured.
func (c *Connection) setState(state ConnState) {
	c.state.Store(int32(state))
	if c.server.ConnStateHook != nil {
		c.server.ConnStateHook(c.conn, state)
	}
}

// Close performs thread-safe, idempotent connection teardown: marks the
// connection closed, cancels its context, and closes the socket.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// GetState returns the current connection state without side effects.
func (c *Connection) GetState() ConnState {
	return ConnState(c.state.Load())
}

// RemoteAddr returns the client's network address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// LocalAddr returns the server's local address for this connection.
func (c *Connection) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// readRequest reads and decodes exactly one RESP frame from the
// connection, applying the server's read timeout if configured.
func (c *Connection) readRequest() (Frame, error) {
	if c.server.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.server.ReadTimeout)); err != nil {
			return Frame{}, err
		}
	}
	msg, err := c.parser.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	return MessageToFrame(msg), nil
}

// writeReply serializes and flushes reply to the connection, applying the
// server's write timeout if configured. The keyspace lock must already be
// released by the time this is called.
func (c *Connection) writeReply(reply Frame) error {
	if c.server.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := c.writer.Write(EncodeFrame(reply)); err != nil {
		return err
	}
	return c.writer.Flush()
}
