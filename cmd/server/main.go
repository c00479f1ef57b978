package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/tictactoe-server/internal/api"
	"github.com/mcoot/tictactoe-server/internal/config"
	"github.com/mcoot/tictactoe-server/internal/factory"
	"github.com/mcoot/tictactoe-server/internal/transport/tcp"
	"github.com/mcoot/tictactoe-server/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging
	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		slog.Error("invalid log configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	app, err := factory.New(factory.ConfigFrom(cfg, logger))
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tcpServer := app.NewTCPServer(tcp.Config{
		Addr:          cfg.Server.TCPAddr,
		MaxFrameBytes: cfg.Server.MaxFrameBytes,
		SendBuffer:    cfg.Server.SendBuffer,
		IdleTimeout:   cfg.Server.IdleTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
	})

	wsCfg := ws.DefaultConfig()
	wsCfg.MaxFrameBytes = cfg.Server.MaxFrameBytes
	wsCfg.SendBuffer = cfg.Server.SendBuffer
	wsCfg.WriteTimeout = cfg.Server.WriteTimeout
	wsCfg.AllowedOrigins = cfg.Server.AllowedOrigins

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.Server.HTTPAddr
	serverCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	httpServer := api.NewServer(app.NewRouter(ctx, wsCfg), serverCfg, logger)

	// Bind both listeners before serving so a port clash fails fast
	if err := tcpServer.Listen(); err != nil {
		_ = app.Storage.Close()
		return err
	}
	if err := httpServer.Listen(); err != nil {
		_ = tcpServer.Close()
		_ = app.Storage.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tcpServer.Start(gctx)
	})
	g.Go(func() error {
		return httpServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown(cfg, app, tcpServer, httpServer)
	})

	logger.Info("server started",
		slog.String("tcp_addr", tcpServer.Addr()),
		slog.String("http_addr", httpServer.Addr()),
		slog.String("storage", cfg.Storage.Type))

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// shutdown stops accepting, then closes every session, then waits for
// connection goroutines to drain
func shutdown(cfg config.Config, app *factory.App, tcpServer *tcp.Server, httpServer *api.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := tcpServer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := app.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := tcpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
