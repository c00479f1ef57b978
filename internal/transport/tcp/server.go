package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mcoot/tictactoe-server/internal/connection"
	"github.com/mcoot/tictactoe-server/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-server/internal/dependencies/random"
	"github.com/mcoot/tictactoe-server/internal/protocol"
	"github.com/mcoot/tictactoe-server/internal/transport"
)

var newline = []byte{'\n'}

// Config holds configuration for the TCP listener
type Config struct {
	Addr          string
	MaxFrameBytes int
	SendBuffer    int
	IdleTimeout   time.Duration // 0 disables the read deadline
	WriteTimeout  time.Duration
}

// DefaultConfig returns sensible defaults for the TCP listener
func DefaultConfig() Config {
	return Config{
		Addr:          ":5555",
		MaxFrameBytes: protocol.DefaultMaxFrameBytes,
		SendBuffer:    connection.DefaultSendBuffer,
		WriteTimeout:  10 * time.Second,
	}
}

// Server accepts newline-delimited JSON connections
type Server struct {
	cfg     Config
	handler transport.Handler
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closing  bool
	conns    sync.WaitGroup
}

// NewServer creates a new TCP Server
func NewServer(cfg Config, handler transport.Handler, clock clock.Clock, random random.Random, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "tcp")),
	}
}

// Listen binds the listening socket
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Start listens (if needed) and accepts connections until Shutdown
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}

	s.logger.Info("starting TCP server", slog.String("addr", ln.Addr().String()))

	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("temporary accept error", slog.String("error", err.Error()))
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.serveConn(ctx, nc)
		}()
	}
}

// Close stops accepting new connections. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("close listener: %w", err)
		}
	}
	return nil
}

// Shutdown stops accepting and waits for connection goroutines to exit.
// Open connections are closed by the session manager.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down TCP server")

	if err := s.Close(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("TCP server stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown error: %w", ctx.Err())
	}
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		_ = nc.Close()
		return
	}

	conn := connection.New(s.random.UUID(), nc.RemoteAddr().String(), connection.TransportTCP,
		s.cfg.SendBuffer, s.clock.Now(), nc)
	s.handler.Connect(conn)
	defer s.handler.Disconnect(conn)

	go conn.WriteLoop(func(frame []byte) error {
		if s.cfg.WriteTimeout > 0 {
			if err := nc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return err
			}
		}
		bufs := net.Buffers{frame, newline}
		_, err := bufs.WriteTo(nc)
		return err
	})

	reader := protocol.NewFrameReader(nc, s.cfg.MaxFrameBytes)
	for {
		if s.cfg.IdleTimeout > 0 {
			_ = nc.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}

		frame, err := reader.ReadFrame()
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			s.logger.Warn("oversized frame discarded",
				slog.String("connection_id", conn.ID()),
				slog.Int("max_bytes", s.cfg.MaxFrameBytes))
			s.handler.Reject(conn, err)
			continue
		}
		if err != nil {
			if !transport.IsExpectedClose(err) && !conn.Closed() {
				s.logger.Warn("read error",
					slog.String("connection_id", conn.ID()),
					slog.String("error", err.Error()))
			}
			return
		}

		s.handler.Handle(ctx, conn, frame)
	}
}
