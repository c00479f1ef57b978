package connection

import (
	"io"
	"sync"
	"time"

	"github.com/mcoot/tictactoe-server/internal/model"
)

// DefaultSendBuffer is the number of outbound frames queued per connection
const DefaultSendBuffer = 256

// Transport names
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// Conn is one client endpoint. The transport owns reads; outbound frames are
// queued with Enqueue and drained by the transport's writer goroutine.
type Conn struct {
	id          string
	remoteAddr  string
	transport   string
	connectedAt time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closer    io.Closer
}

// New creates a Conn. Closing it closes the underlying transport via closer.
func New(id, remoteAddr, transport string, sendBuffer int, connectedAt time.Time, closer io.Closer) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Conn{
		id:          id,
		remoteAddr:  remoteAddr,
		transport:   transport,
		connectedAt: connectedAt,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		closer:      closer,
	}
}

func (c *Conn) ID() string             { return c.id }
func (c *Conn) RemoteAddr() string     { return c.remoteAddr }
func (c *Conn) Transport() string      { return c.transport }
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// Enqueue queues a frame without blocking. It returns model.ErrSendBufferFull
// when the consumer has fallen behind, and model.ErrConnectionClosed after Close.
func (c *Conn) Enqueue(frame []byte) error {
	select {
	case <-c.done:
		return model.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return model.ErrSendBufferFull
	}
}

// Outbound is drained by the writer goroutine
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// Pending returns the number of queued frames
func (c *Conn) Pending() int {
	return len(c.send)
}

// Done is closed once the connection is closed
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Closed reports whether Close has been called
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close is idempotent. It unblocks the reader by closing the transport.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}

// WriteLoop drains queued frames into write until the connection closes or a
// write fails. A failed write closes the connection.
func (c *Conn) WriteLoop(write func(frame []byte) error) {
	for {
		select {
		case frame := <-c.send:
			if err := write(frame); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
