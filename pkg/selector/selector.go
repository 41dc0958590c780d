package selector

import (
	"context"

	"location-tracker/pkg/endpoint"
	"location-tracker/pkg/probe"

	"golang.org/x/sync/errgroup"
)

// Diagnostics surfaced for degraded probe outcomes.
const (
	DiagReplicaDown = "replica unavailable, using primary"
	DiagPrimaryDown = "primary unavailable, using replica"
	DiagBothDown    = "both servers unavailable"
)

// Outcome is the decision derived from one pair of probe results.
// Chosen is nil only when both endpoints are down; an empty Diagnostic
// means there is nothing to report.
type Outcome struct {
	Chosen     *endpoint.Endpoint
	Diagnostic string
	Primary    probe.Result
	Replica    probe.Result
}

// Prober is the part of probe.Prober the selector needs.
type Prober interface {
	Probe(ctx context.Context, e endpoint.Endpoint) probe.Result
}

type Selector struct {
	registry *endpoint.Registry
	prober   Prober
}

func New(registry *endpoint.Registry, prober Prober) *Selector {
	return &Selector{registry: registry, prober: prober}
}

// Select probes both endpoints concurrently and decides once both have
// settled.
func (s *Selector) Select(ctx context.Context) Outcome {
	var primary, replica probe.Result

	var g errgroup.Group
	g.Go(func() error {
		primary = s.prober.Probe(ctx, s.registry.Primary())
		return nil
	})
	g.Go(func() error {
		replica = s.prober.Probe(ctx, s.registry.Replica())
		return nil
	})
	_ = g.Wait() // probes classify failures instead of returning them

	return Decide(primary, replica)
}

// Decide applies the selection table. The primary wins whenever it is up.
func Decide(primary, replica probe.Result) Outcome {
	out := Outcome{Primary: primary, Replica: replica}

	switch {
	case primary.Up() && replica.Up():
		e := primary.Endpoint
		out.Chosen = &e
	case primary.Up():
		e := primary.Endpoint
		out.Chosen = &e
		out.Diagnostic = DiagReplicaDown
	case replica.Up():
		e := replica.Endpoint
		out.Chosen = &e
		out.Diagnostic = DiagPrimaryDown
	default:
		out.Diagnostic = DiagBothDown
	}
	return out
}
