package recorder

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Sample is one completed round trip: the location the server answered with
// and how long the answer took.
type Sample struct {
	Latitude  float64
	Longitude float64
	Latency   time.Duration
}

func (s Sample) LatencyMs() float64 { return float64(s.Latency) / float64(time.Millisecond) }

// Stats summarizes the recorded latencies in milliseconds.
type Stats struct {
	Count  int
	MinMs  float64
	MaxMs  float64
	MeanMs float64
	P50Ms  float64
	P95Ms  float64
}

// Recorder accumulates samples in receipt order. Only Reset removes them.
type Recorder struct {
	mu      sync.RWMutex
	samples []Sample
}

func New() *Recorder { return &Recorder{} }

func (r *Recorder) Append(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

// Samples returns a copy of every sample, oldest first.
func (r *Recorder) Samples() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.samples)
}

// Last returns the newest sample.
func (r *Recorder) Last() (Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.samples) == 0 {
		return Sample{}, false
	}
	return r.samples[len(r.samples)-1], true
}

// Reset clears the history at the start of a new probing cycle.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = nil
}

func (r *Recorder) Stats() Stats {
	r.mu.RLock()
	ms := make([]float64, len(r.samples))
	for i, s := range r.samples {
		ms[i] = s.LatencyMs()
	}
	r.mu.RUnlock()

	if len(ms) == 0 {
		return Stats{}
	}
	sort.Float64s(ms)
	return Stats{
		Count:  len(ms),
		MinMs:  ms[0],
		MaxMs:  ms[len(ms)-1],
		MeanMs: stat.Mean(ms, nil),
		P50Ms:  stat.Quantile(0.5, stat.Empirical, ms, nil),
		P95Ms:  stat.Quantile(0.95, stat.Empirical, ms, nil),
	}
}
