// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/httpapi"
	"github.com/conectividadeproj/conectividade-mcp/internal/refresh"
	"github.com/conectividadeproj/conectividade-mcp/internal/tool"
)

const serverVersion = "1.0.0"

var addrFlag string

func newMCPServer(a *app) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "conectividade",
		Version: serverVersion,
	}, nil)
	tool.Register(srv, &tool.Handlers{Runner: a.pipeline, Datasets: a.cache})
	return srv
}

// serveCmd runs the HTTP API, MCP over streamable HTTP and the optional
// refresh schedule.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve coverage exports over HTTP and MCP, refreshing on a schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if schedule := cfg.Server.RefreshSchedule; schedule != "" {
			sched, err := refresh.New(schedule, a.cache, logger)
			if err != nil {
				return err
			}
			sched.Start(ctx)
			defer sched.Stop()
		}

		mcpSrv := newMCPServer(a)
		r := chi.NewRouter()
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))
		r.Mount("/", httpapi.New(a.pipeline, a.cache, logger).Handler())

		addr := addrFlag
		if addr == "" {
			addr = cfg.Server.Addr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server starting", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
		logger.Info("server stopped")
		return nil
	},
}

// mcpCmd serves the MCP tools over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the coverage tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("mcp server starting on stdio")
		if err := newMCPServer(a).Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
