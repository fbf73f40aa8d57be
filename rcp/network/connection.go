package network

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	dialTimeout = 5 * time.Second

	// RCP frames with decoded strings can be long; give the scanner room.
	initialFrameBuffer = 64 * 1024
	maxFrameSize       = 1024 * 1024
)

// Handlers receives transport events. OnFrame is called once per received
// frame, OnError on a read or connection failure, OnClosed after a deliberate
// Close. All callbacks run on the transport's read goroutine.
type Handlers struct {
	OnFrame  func(data []byte)
	OnError  func(err error)
	OnClosed func()
}

// Transport abstracts the camera-side network layer so the connection
// lifecycle can be driven against a fake in tests.
type Transport interface {
	// Connect dials the endpoint and starts delivering inbound frames.
	Connect() error

	// Send transmits one frame. Framing is the transport's concern.
	Send(data []byte) error

	// Close tears the connection down. Events from a closed transport stop
	// after OnClosed fires.
	Close() error
}

// Dialer creates a transport for one connection attempt. The session creates
// a fresh transport per attempt so stale read loops can be told apart from
// the live one.
type Dialer func(addr string, handlers Handlers) Transport

// TCPTransport is the default Transport: newline-delimited JSON frames over a
// single TCP connection.
type TCPTransport struct {
	addr     string
	handlers Handlers

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	// test seam; defaults to net.DialTimeout
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// NewTCPTransport creates a transport for addr ("host:port").
func NewTCPTransport(addr string, handlers Handlers) Transport {
	return &TCPTransport{
		addr:     addr,
		handlers: handlers,
		dial:     net.DialTimeout,
	}
}

func (t *TCPTransport) Connect() error {
	conn, err := t.dial("tcp", t.addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.addr, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("transport already closed")
	}
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop(conn)
	return nil
}

func (t *TCPTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return net.ErrClosed
	}

	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, data...)
	frame = append(frame, '\n')
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (t *TCPTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// readLoop delivers newline-delimited frames until the connection fails or is
// closed locally.
func (t *TCPTransport) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, initialFrameBuffer), maxFrameSize)

	for scanner.Scan() {
		if t.handlers.OnFrame != nil {
			frame := make([]byte, len(scanner.Bytes()))
			copy(frame, scanner.Bytes())
			t.handlers.OnFrame(frame)
		}
	}

	if t.isClosed() {
		if t.handlers.OnClosed != nil {
			t.handlers.OnClosed()
		}
		return
	}

	err := scanner.Err()
	if err == nil {
		// Remote end closed the stream.
		err = fmt.Errorf("connection closed by camera")
	}
	if t.handlers.OnError != nil {
		t.handlers.OnError(err)
	}
}
