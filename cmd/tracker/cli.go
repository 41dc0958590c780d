package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"location-tracker/pkg/probe"
	"location-tracker/pkg/recorder"
	"location-tracker/pkg/session"
	"location-tracker/pkg/telemetry"
	"location-tracker/pkg/utils"
)

// Controller is the part of the session the CLI drives and renders.
type Controller interface {
	Status() session.Status
	Probes() []probe.Result
	Samples() []recorder.Sample
	Stats() recorder.Stats
	SetRunning(on bool)
	Running() bool
}

// CLI represents the command-line status runner
type CLI struct {
	telemetry telemetry.TelemetryReader
	session   Controller
	interval  time.Duration
	out       io.Writer
	logger    *log.Logger

	mu        sync.Mutex
	lastState session.State
	lastTrips uint64
	printed   bool
}

// NewCLI creates a new command-line status runner
func NewCLI(reader telemetry.TelemetryReader, ctrl Controller, interval time.Duration, out io.Writer, logger *log.Logger) *CLI {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &CLI{
		telemetry: reader,
		session:   ctrl,
		interval:  interval,
		out:       out,
		logger:    logger,
	}
}

// Run prints periodic status updates and blocks until ctx is done
func (c *CLI) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Printf("shutting down...")
			return nil
		case <-ticker.C:
			c.printStatus(false)
		}
	}
}

// ReadCommands toggles the telemetry loop on every "p" line, prints status on
// "s" and returns at EOF.
func (c *CLI) ReadCommands(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "p", "pause", "resume":
			c.Toggle()
		case "s", "status":
			c.printStatus(true)
		}
	}
}

// Toggle flips the running flag. Stopping prints the latency summary.
func (c *CLI) Toggle() {
	if c.session.Running() {
		c.session.SetRunning(false)
		fmt.Fprintln(c.out, "loop stopping after the round trip in flight")
		c.PrintSummary()
		return
	}
	c.session.SetRunning(true)
	fmt.Fprintln(c.out, "loop restarting with a fresh availability check")
}

// PrintSummary prints the recorded latencies and their distribution
func (c *CLI) PrintSummary() {
	samples := c.session.Samples()
	fmt.Fprintf(c.out, "Recorded latencies (%d):\n", len(samples))
	for i, s := range samples {
		fmt.Fprintf(c.out, "  %3d. %.0f ms (%.6f, %.6f)\n", i+1, s.LatencyMs(), s.Latitude, s.Longitude)
	}
	if len(samples) == 0 {
		return
	}
	st := c.session.Stats()
	fmt.Fprintf(c.out, "Latency - min=%.1fms mean=%.1fms p50=%.1fms p95=%.1fms max=%.1fms\n",
		st.MinMs, st.MeanMs, st.P50Ms, st.P95Ms, st.MaxMs)
}

// printStatus prints the current session view and telemetry counters
func (c *CLI) printStatus(force bool) {
	st := c.session.Status()
	snapshot := c.telemetry.Snapshot()

	c.mu.Lock()
	show := force || c.shouldPrintStatus(st, snapshot)
	c.lastState, c.lastTrips, c.printed = st.State, snapshot.RoundTrips, true
	c.mu.Unlock()
	if !show {
		return
	}

	endpointURL := "-"
	if st.Endpoint != nil {
		endpointURL = st.Endpoint.String()
	}
	fmt.Fprintf(c.out, "Status - state=%s endpoint=%s cycle=%s running=%t\n", st.State, endpointURL, st.CycleID, st.Running)
	if st.Diagnostic != "" {
		fmt.Fprintf(c.out, "  ! %s\n", st.Diagnostic)
	}
	if st.Err != nil {
		fmt.Fprintf(c.out, "  error: %v\n", st.Err)
	}

	fmt.Fprintln(c.out, "Servers:")
	for _, r := range c.session.Probes() {
		fmt.Fprintf(c.out, "  %s\n", r)
	}

	if st.Location != nil {
		fmt.Fprintf(c.out, "Location - latitude=%.6f longitude=%.6f\n", st.Location.Latitude, st.Location.Longitude)
	} else {
		fmt.Fprintln(c.out, "Location - waiting for first update")
	}
	if st.Latency != nil {
		fmt.Fprintf(c.out, "Latency - current=%dms avg=%.1fms p95=%.1fms\n", st.Latency.Milliseconds(), snapshot.AvgLatencyMs, snapshot.P95LatencyMs)
	}
	fmt.Fprintf(c.out, "Telemetry - round trips=%s rate=%.1f/s connect failures=%d switches=%d errors=%d\n",
		utils.FormatNumber(snapshot.RoundTrips), snapshot.RoundTripsPerSecond, snapshot.ConnectFailures, snapshot.EndpointSwitches, snapshot.ErrorsTotal)
	for _, kc := range utils.SortByCount(snapshot.ErrorsByContext) {
		fmt.Fprintf(c.out, "  errors[%s]=%s\n", kc.Key, utils.FormatNumber(kc.Count))
	}
}

// shouldPrintStatus determines if we should print a status update
func (c *CLI) shouldPrintStatus(st session.Status, snapshot telemetry.Snapshot) bool {
	// Always print first status
	if !c.printed {
		return true
	}
	if st.State != c.lastState {
		return true
	}
	return snapshot.RoundTrips != c.lastTrips
}
