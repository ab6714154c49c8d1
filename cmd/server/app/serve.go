package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gitingest-mcp/server/internal/mcp"
	"gitingest-mcp/server/internal/middleware"
	"gitingest-mcp/server/internal/telemetry"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
	cmd.Flags().Int("port", 8000, "Port to listen on")
	cmd.Flags().String("auth-secret", "", "HS256 secret for bearer tokens; empty disables auth")
	cmd.Flags().Int("rate-limit", 10, "Requests per second per client; 0 disables")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	container, err := c.container()
	if err != nil {
		return err
	}

	return container.Invoke(func(
		handler *mcp.Handler,
		tel *telemetry.Telemetry,
		httpMetrics *telemetry.HTTPMetrics,
		auth *middleware.Authenticator,
	) error {
		g, gctx := errgroup.WithContext(ctx)

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", c.cfg.Port),
			Handler: newRouter(routerDeps{
				handler:     handler,
				telemetry:   tel,
				httpMetrics: httpMetrics,
				auth:        auth,
				limiter:     middleware.NewRateLimiter(gctx, c.cfg.RateLimit),
			}),
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		}

		g.Go(func() error {
			logger.WithFields(logger.Fields{
				"addr":          srv.Addr,
				"version":       Version,
				"auth":          auth.Enabled(),
				"token_passing": c.cfg.TokenPassing,
			}).Info("server: listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("server: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return errors.Join(srv.Shutdown(shutdownCtx), tel.Shutdown(shutdownCtx))
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("server: stopped")
		return nil
	})
}
