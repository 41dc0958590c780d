package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"location-tracker/pkg/config"
	"location-tracker/pkg/testutil"
	"location-tracker/pkg/tracker"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.KeyPrimaryURL, config.KeyReplicaURL, config.KeyProbeTimeoutMs,
		config.KeyReconnectAttempts, config.KeyReconnectBackoffMs,
		config.KeyStatusIntervalSeconds, config.KeyMetricsAddr, config.KeyConfigFile,
	} {
		t.Setenv(key, "")
	}
}

func TestRunVersionFlag(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "tracker version") {
		t.Errorf("expected version output to contain 'tracker version', got: %s", stdout.String())
	}
}

func TestRunHelpFlag(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), config.HelpUsage) {
		t.Errorf("expected usage output, got: %s", stdout.String())
	}
}

func TestRunInvalidConfig(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--primary-url", "ftp://localhost:3000"}, nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for invalid primary url")
	}
	if !strings.Contains(err.Error(), config.KeyPrimaryURL) {
		t.Errorf("expected error to mention %s, got: %v", config.KeyPrimaryURL, err)
	}
}

func TestRunAgainstEchoServers(t *testing.T) {
	clearEnv(t)
	primary := testutil.NewEchoServer(tracker.EventSendLocation, tracker.EventLocationUpdate)
	defer primary.Close()
	replica := testutil.NewEchoServer(tracker.EventSendLocation, tracker.EventLocationUpdate)
	defer replica.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	args := []string{
		"--primary-url", primary.URL(),
		"--replica-url", replica.URL(),
		"--metrics-addr", "127.0.0.1:0",
	}
	if err := run(ctx, args, nil, &stdout, &stderr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"Servers:", primary.URL() + " -> up", "Recorded latencies"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if primary.Requests() == 0 {
		t.Error("expected the primary to receive location updates")
	}
	if replica.Requests() != 0 {
		t.Error("expected the replica to stay idle while the primary is up")
	}
	if !strings.Contains(stderr.String(), "connected to "+primary.URL()) {
		t.Errorf("expected connect log line, got:\n%s", stderr.String())
	}
}
