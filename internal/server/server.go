// Package server exposes the Switchboard core over a REST API plus an SSE
// stream of change events.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/board"
	"github.com/zulandar/switchboard/internal/dispatch"
	"github.com/zulandar/switchboard/internal/promotion"
	"github.com/zulandar/switchboard/internal/routing"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Port       int
	Out        io.Writer
	Boards     *board.Store
	Rules      *routing.Engine
	Workflow   *promotion.Workflow
	Dispatcher *dispatch.Dispatcher
}

// Server wires the core services into HTTP handlers.
type Server struct {
	boards     *board.Store
	rules      *routing.Engine
	workflow   *promotion.Workflow
	dispatcher *dispatch.Dispatcher
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Boards == nil || opts.Rules == nil || opts.Workflow == nil {
		return fmt.Errorf("server: boards, rules and workflow are required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	s := &Server{
		boards:     opts.Boards,
		rules:      opts.Rules,
		workflow:   opts.Workflow,
		dispatcher: opts.Dispatcher,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Switchboard API at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
