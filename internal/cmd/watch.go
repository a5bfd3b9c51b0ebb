package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/event"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the queues and report changes",
	Long: `Watch both queue directories until interrupted.

Captures removed by hand are dropped from their queue. Queue and cache
events are printed as they happen, and --metrics-addr serves Prometheus
metrics over HTTP.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchMetricsAddr string

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve /metrics on this address (e.g. 127.0.0.1:9464)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	id := s.vault.Bus().SubscribeAll(func(e event.Event) {
		_, _ = fmt.Fprintln(out, formatEvent(e))
	})
	defer s.vault.Bus().Unsubscribe(id)

	if watchMetricsAddr != "" {
		if err := serveMetrics(ctx, s, watchMetricsAddr); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", s.vault.Root())
	<-ctx.Done()
	return nil
}

// serveMetrics starts the metrics endpoint; it shuts down with ctx.
func serveMetrics(ctx context.Context, s *session, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.vault.Metrics().Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func formatEvent(e event.Event) string {
	ts := mutedStyle.Render(e.Timestamp().Format(time.TimeOnly))
	switch ev := e.(type) {
	case event.ArtifactCapturedEvent:
		return fmt.Sprintf("%s %s %s %s", ts, successStyle.Render("captured"), ev.View, ev.Path)
	case event.ArtifactEvictedEvent:
		return fmt.Sprintf("%s %s %s %s", ts, warningStyle.Render("evicted"), ev.View, ev.Path)
	case event.ArtifactDeletedEvent:
		return fmt.Sprintf("%s %s %s", ts, warningStyle.Render("deleted"), ev.Path)
	case event.ArtifactVanishedEvent:
		return fmt.Sprintf("%s %s %s %s", ts, warningStyle.Render("vanished"), ev.View, ev.Path)
	case event.QueueClearedEvent:
		return fmt.Sprintf("%s %s %s (%d)", ts, warningStyle.Render("cleared"), ev.View, ev.Count)
	case event.CaptureFailedEvent:
		return fmt.Sprintf("%s %s %s", ts, errorStyle.Render("capture failed"), ev.Message)
	case event.EraseFailedEvent:
		return fmt.Sprintf("%s %s %s: %s", ts, errorStyle.Render("erase failed"), ev.Path, ev.Reason)
	case event.DerivativeFallbackEvent:
		return fmt.Sprintf("%s %s %s %s", ts, warningStyle.Render("fallback"), ev.Kind, ev.Path)
	default:
		return fmt.Sprintf("%s %s", ts, e.EventType())
	}
}
