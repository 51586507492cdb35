package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/inboxsync/internal/repositories"
	"github.com/desertthunder/inboxsync/internal/server"
)

// Serve runs scheduled checks and the HTTP status server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s, err := r.openSession(reg)
	if err != nil {
		return err
	}
	defer s.Close()

	handler := server.NewRouter(
		server.NewSyncHandler(s.orch, s.orch.Store()),
		reg,
		server.DefaultMiddleware(r.logger)...,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.orch.Start(gctx) })
	g.Go(func() error { return server.Serve(gctx, addr, handler, r.logger) })

	return g.Wait()
}

func historyAdapter(db *sql.DB) *repositories.HistoryAdapter {
	return repositories.NewHistoryAdapter(
		repositories.NewSyncRunRepository(db),
		repositories.NewMetadataRepository(db),
	)
}
