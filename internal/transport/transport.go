package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/mcoot/tictactoe-server/internal/connection"
)

// Handler receives connection lifecycle events and inbound frames from a
// transport. Handle is called sequentially per connection; Disconnect is
// called exactly once when the transport stops reading.
type Handler interface {
	Connect(conn *connection.Conn)
	Handle(ctx context.Context, conn *connection.Conn, frame []byte)
	Reject(conn *connection.Conn, err error)
	Disconnect(conn *connection.Conn)
}

// IsExpectedClose reports whether err is a normal end of a connection
func IsExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset by peer") || strings.Contains(msg, "broken pipe")
}
