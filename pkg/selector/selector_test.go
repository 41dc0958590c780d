package selector

import (
	"context"
	"sync"
	"testing"
	"time"

	"location-tracker/pkg/endpoint"
	"location-tracker/pkg/probe"
)

func result(e endpoint.Endpoint, up bool) probe.Result {
	r := probe.Result{Endpoint: e}
	if up {
		r.Status = probe.StatusUp
		r.Latency = 5 * time.Millisecond
	}
	return r
}

func TestDecide(t *testing.T) {
	reg, _ := endpoint.NewRegistry("ws://primary", "ws://replica")

	tests := []struct {
		name       string
		primaryUp  bool
		replicaUp  bool
		chosen     *endpoint.Role
		diagnostic string
	}{
		{"both up", true, true, rolePtr(endpoint.RolePrimary), ""},
		{"replica down", true, false, rolePtr(endpoint.RolePrimary), DiagReplicaDown},
		{"primary down", false, true, rolePtr(endpoint.RoleReplica), DiagPrimaryDown},
		{"both down", false, false, nil, DiagBothDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Decide(result(reg.Primary(), tt.primaryUp), result(reg.Replica(), tt.replicaUp))

			if tt.chosen == nil {
				if out.Chosen != nil {
					t.Errorf("expected no endpoint, got %v", *out.Chosen)
				}
			} else if out.Chosen == nil || out.Chosen.Role != *tt.chosen {
				t.Errorf("expected %v chosen, got %v", *tt.chosen, out.Chosen)
			}
			if out.Diagnostic != tt.diagnostic {
				t.Errorf("expected diagnostic %q, got %q", tt.diagnostic, out.Diagnostic)
			}
		})
	}
}

func rolePtr(r endpoint.Role) *endpoint.Role { return &r }

// scriptedProber answers each URL after a delay with a fixed status.
type scriptedProber struct {
	mu       sync.Mutex
	up       map[string]bool
	delay    map[string]time.Duration
	inFlight int
	maxSeen  int
}

func (p *scriptedProber) Probe(ctx context.Context, e endpoint.Endpoint) probe.Result {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	p.mu.Unlock()

	select {
	case <-time.After(p.delay[e.URL]):
	case <-ctx.Done():
	}

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	return result(e, p.up[e.URL])
}

func TestSelect_WaitsForBothProbes(t *testing.T) {
	reg, _ := endpoint.NewRegistry("ws://primary", "ws://replica")
	// The replica answers quickly, the primary is slow but up: the decision
	// must still prefer the primary.
	prober := &scriptedProber{
		up:    map[string]bool{"ws://primary": true, "ws://replica": true},
		delay: map[string]time.Duration{"ws://primary": 80 * time.Millisecond, "ws://replica": 5 * time.Millisecond},
	}

	out := New(reg, prober).Select(context.Background())
	if out.Chosen == nil || out.Chosen.Role != endpoint.RolePrimary {
		t.Fatalf("expected primary, got %v", out.Chosen)
	}
	if out.Diagnostic != "" {
		t.Errorf("expected no diagnostic, got %q", out.Diagnostic)
	}
	if prober.maxSeen != 2 {
		t.Errorf("expected both probes in flight together, max concurrency was %d", prober.maxSeen)
	}
}

func TestSelect_PrimaryTimeoutFallsBackToReplica(t *testing.T) {
	reg, _ := endpoint.NewRegistry("ws://primary", "ws://replica")
	prober := &scriptedProber{
		up:    map[string]bool{"ws://primary": false, "ws://replica": true},
		delay: map[string]time.Duration{"ws://primary": 60 * time.Millisecond, "ws://replica": 20 * time.Millisecond},
	}

	out := New(reg, prober).Select(context.Background())
	if out.Chosen == nil || out.Chosen.URL != "ws://replica" {
		t.Fatalf("expected replica, got %v", out.Chosen)
	}
	if out.Diagnostic != DiagPrimaryDown {
		t.Errorf("expected %q, got %q", DiagPrimaryDown, out.Diagnostic)
	}
	if out.Primary.Up() || !out.Replica.Up() {
		t.Errorf("expected outcome to carry both probe results, got %+v / %+v", out.Primary, out.Replica)
	}
}
