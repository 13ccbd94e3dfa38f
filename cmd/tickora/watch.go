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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tickora-io/tickora/internal/subscription"
	"github.com/tickora-io/tickora/internal/workflow"
)

const (
	renderJob  = "render"
	refreshJob = "refresh"
)

var ticketWatchCmd = &cobra.Command{
	Use:   "watch ID",
	Short: "Follow a ticket's status and running timer until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketWatch,
}

var watchRefresh time.Duration

func init() {
	ticketWatchCmd.Flags().DurationVar(&watchRefresh, "refresh", 30*time.Second, "How often to re-fetch the ticket")
	ticketCmd.AddCommand(ticketWatchCmd)
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runTicketWatch(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	if err := ensureProfile(cmd.Context()); err != nil {
		return err
	}

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	stopMetrics, err := serveMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	view, err := current.ctl.Open(ctx, id)
	if err != nil {
		return err
	}
	defer view.Close()

	scope := subscription.NewScope(subscription.WithLogger(current.logger))
	defer scope.Close()

	out := cmd.OutOrStdout()
	var lastStatus workflow.Status
	render := func(context.Context) {
		t := view.Ticket()
		status := workflow.Status(t.Status)
		if status != lastStatus {
			fmt.Fprintf(out, "%s  %s  [%s]  %s\n", time.Now().Format("15:04:05"), t.TicketID, status.Label(), t.AssigneeLabel())
			lastStatus = status
		}
		if timer := view.Timer(); timer.Visible {
			fmt.Fprintf(out, "\r  timer %s (%s) ", timer.Formatted, timer.UserName)
		}
	}
	render(ctx)

	if err := scope.Every(renderJob, current.cfg.Polling.TickerInterval, render); err != nil {
		return err
	}
	if err := scope.Every(refreshJob, watchRefresh, func(jobCtx context.Context) {
		if err := view.Refresh(jobCtx); err != nil {
			current.logger.Printf("refresh ticket %d: %v", id, err)
		}
	}); err != nil {
		return err
	}

	<-ctx.Done()
	fmt.Fprintln(out)
	return nil
}

// serveMetrics exposes the registry on the configured listen address while a
// long-running command is active. It is a no-op unless metrics are enabled.
func serveMetrics() (func(), error) {
	if !current.cfg.Metrics.Enabled {
		return func() {}, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(current.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              current.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Surface bind failures before the caller starts its work.
	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
	case <-time.After(100 * time.Millisecond):
	}
	current.logger.Printf("metrics on http://%s/metrics", srv.Addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			current.logger.Printf("metrics shutdown: %v", err)
		}
	}, nil
}
