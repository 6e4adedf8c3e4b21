package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/grove/internal/cli"
	"github.com/julianstephens/grove/internal/constants"
	"github.com/julianstephens/grove/internal/logger"
	"github.com/julianstephens/grove/internal/server"
)

type ServeCmd struct {
	Addr      string `help:"Listen address (default from config)."`
	CacheSize int    `help:"Number of identity engines kept in memory (default from config)."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	addr := c.Addr
	if addr == "" {
		addr = ctx.Config.Server.Addr
	}
	size := c.CacheSize
	if size <= 0 {
		size = ctx.Config.Server.CacheSize
	}

	registry, err := server.NewRegistry(ctx.Store, ctx.EngineOptions(), size)
	if err != nil {
		return err
	}
	srv := server.New(registry)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()
	fmt.Printf("Serving grove API on http://%s (Ctrl+C to stop)\n", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-sigCtx.Done():
	}

	logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.PersistTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
