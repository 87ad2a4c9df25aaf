package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grahms/segmentweaver/internal/cache"
	"github.com/grahms/segmentweaver/internal/config"
	"github.com/grahms/segmentweaver/internal/mcpserver"
	"github.com/grahms/segmentweaver/internal/render"
	"github.com/grahms/segmentweaver/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the JSON API (/render, /validate, /import), Prometheus metrics
on /metrics and the MCP streamable HTTP transport on /mcp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetString("port")
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		store, err := openCache(cmd.Context(), cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := render.NewService(store, logger)
		srv := server.NewServer(svc, logger, cfg)
		srv.Mount("/mcp", mcpserver.NewServer(svc, cfg.Render.Policy(), logger).HTTPHandler("/mcp"))

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting segmentweaver", "port", cfg.Port, "cache", cfg.Cache.Backend)
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				return httpServer.Close()
			}
		}
		return nil
	},
}

// openCache builds the render cache described by c. A Redis backend is
// pinged so a bad address fails at startup.
func openCache(ctx context.Context, c config.CacheConfig) (cache.Cache, error) {
	switch c.Backend {
	case config.CacheNone:
		return cache.Nop{}, nil
	case config.CacheMemory, "":
		return cache.NewMemory(c.MaxEntries, c.TTL), nil
	case config.CacheRedis:
		r := cache.NewRedis(c.RedisAddr, c.RedisPassword, c.RedisDB, cache.WithTTL(c.TTL))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			r.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", c.RedisAddr, err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides config)")
}
