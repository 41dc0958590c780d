package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"location-tracker/pkg/config"
	"location-tracker/pkg/metrics"
	"location-tracker/pkg/session"
	"location-tracker/pkg/telemetry"
	"location-tracker/pkg/transport"
	"location-tracker/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tracker: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, opts, err := config.LoadArgs(args)
	if err != nil {
		return err
	}
	if opts.ShowVersion {
		fmt.Fprintln(stdout, version.Info())
		return nil
	}
	if opts.ShowHelp {
		config.PrintUsage(stdout)
		return nil
	}

	logger := log.New(stderr, "tracker: ", log.LstdFlags)
	logger.Printf("%s", version.Info())
	logger.Printf("primary: %s", cfg.PrimaryURL)
	logger.Printf("replica: %s", cfg.ReplicaURL)

	agg := telemetry.NewAggregator(telemetry.RealClock{}, telemetry.DefaultConfig())
	agg.Start(ctx)
	defer agg.Stop()

	publishers := telemetry.MultiPublisher{agg}
	if cfg.Runner.MetricsAddr != "" {
		m := metrics.New()
		publishers = append(publishers, m)
		srv := serveMetrics(cfg.Runner.MetricsAddr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sess, err := session.New(cfg, transport.NewWebsocketDialer(cfg.ProbeTimeout(), logger), logger, publishers)
	if err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}

	cli := NewCLI(agg, sess, cfg.StatusInterval(), stdout, logger)
	if stdin != nil {
		go cli.ReadCommands(ctx, stdin)
	}
	err = cli.Run(ctx)

	sess.Stop()
	cli.printStatus(true)
	cli.PrintSummary()
	return err
}

func serveMetrics(addr string, m *metrics.Publisher, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Printf("serving metrics on %s/metrics", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server: %v", err)
		}
	}()
	return srv
}
