package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/mcoot/tictactoe-server/internal/protocol"
)

// ErrClosed is returned once the connection to the server has gone away
var ErrClosed = errors.New("connection closed")

// ServerError is an error message sent by the server
type ServerError struct {
	Code    string
	Message string
	Reason  string
}

func (e *ServerError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func serverError(msg protocol.Error) *ServerError {
	return &ServerError{Code: msg.Code, Message: msg.Message, Reason: msg.Reason}
}

// Client speaks the newline-delimited JSON protocol over TCP.
// Server messages are delivered in order on Events.
type Client struct {
	conn   net.Conn
	logger *slog.Logger
	events chan protocol.Outbound

	writeMu sync.Mutex

	errMu   sync.Mutex
	readErr error
}

// Dial connects to a server at addr
func Dial(ctx context.Context, addr string, logger *slog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return newClient(conn, logger), nil
}

func newClient(conn net.Conn, logger *slog.Logger) *Client {
	c := &Client{
		conn:   conn,
		logger: logger.With(slog.String("component", "client")),
		events: make(chan protocol.Outbound, 64),
	}
	go c.readLoop()
	return c
}

// Events returns server messages in arrival order. The channel is closed
// when the connection ends; Err then reports why.
func (c *Client) Events() <-chan protocol.Outbound {
	return c.events
}

// Err returns the error that ended the read loop, if any
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one message
func (c *Client) Send(msg protocol.Inbound) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(append(frame, '\n')); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}
	c.logger.Debug("sent message", slog.String("type", msg.Type()))
	return nil
}

// Next waits for the next server message
func (c *Client) Next(ctx context.Context) (protocol.Outbound, error) {
	select {
	case msg, ok := <-c.events:
		if !ok {
			if err := c.Err(); err != nil {
				return nil, err
			}
			return nil, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Register creates an account
func (c *Client) Register(ctx context.Context, username, secret string) (protocol.RegisterResponse, error) {
	if err := c.Send(protocol.Register{Username: username, Secret: secret}); err != nil {
		return protocol.RegisterResponse{}, err
	}
	return expect[protocol.RegisterResponse](ctx, c)
}

// Login authenticates this connection
func (c *Client) Login(ctx context.Context, username, secret string) (protocol.LoginResponse, error) {
	if err := c.Send(protocol.Login{Username: username, Secret: secret}); err != nil {
		return protocol.LoginResponse{}, err
	}
	return expect[protocol.LoginResponse](ctx, c)
}

// CreateGame joins the matchmaking queue
func (c *Client) CreateGame() error {
	return c.Send(protocol.CreateGame{})
}

// Move places the player's symbol on a cell
func (c *Client) Move(cell int) error {
	return c.Send(protocol.Move{CellIndex: cell})
}

// Chat sends a message to the opponent
func (c *Client) Chat(text string) error {
	return c.Send(protocol.ChatRequest{Text: text})
}

// LeaveGame forfeits the current game or cancels matchmaking
func (c *Client) LeaveGame() error {
	return c.Send(protocol.LeaveGame{})
}

// expect waits for a reply of type T. A server error is returned as *ServerError;
// any other message is a sequencing error.
func expect[T protocol.Outbound](ctx context.Context, c *Client) (T, error) {
	var zero T
	msg, err := c.Next(ctx)
	if err != nil {
		return zero, err
	}
	switch m := msg.(type) {
	case T:
		return m, nil
	case protocol.Error:
		return zero, serverError(m)
	default:
		return zero, fmt.Errorf("unexpected %s message, want %s", msg.Type(), zero.Type())
	}
}

func (c *Client) readLoop() {
	defer close(c.events)

	reader := protocol.NewFrameReader(c.conn, protocol.DefaultMaxFrameBytes)
	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				c.logger.Warn("dropped oversized frame from server")
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.setErr(err)
			}
			return
		}

		msg, err := protocol.DecodeOutbound(frame)
		if err != nil {
			c.logger.Warn("undecodable message from server", slog.String("error", err.Error()))
			continue
		}
		c.events <- msg
	}
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	c.readErr = err
	c.errMu.Unlock()
}
