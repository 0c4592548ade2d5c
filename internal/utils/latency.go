package utils

import (
	"math"
	"slices"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded window of recent conversion durations per
// pipeline and reports nearest-rank percentiles over it.
type LatencyTracker struct {
	mu      sync.Mutex
	window  int
	byStage map[string]*latencyWindow
}

// latencyWindow is a ring buffer; next is the slot the following sample
// overwrites and total counts every sample ever observed.
type latencyWindow struct {
	samples []time.Duration
	next    int
	total   int
}

// NewLatencyTracker keeps up to window samples for each pipeline.
func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = 512
	}
	return &LatencyTracker{window: window, byStage: make(map[string]*latencyWindow)}
}

// Observe records d for pipeline, evicting that pipeline's oldest sample once
// the window is full. It returns how many samples pipeline has seen in total.
func (l *LatencyTracker) Observe(pipeline string, d time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.byStage[pipeline]
	if !ok {
		w = &latencyWindow{samples: make([]time.Duration, 0, l.window)}
		l.byStage[pipeline] = w
	}
	w.total++
	if len(w.samples) < l.window {
		w.samples = append(w.samples, d)
		return w.total
	}
	w.samples[w.next] = d
	w.next = (w.next + 1) % l.window
	return w.total
}

// Percentile returns the nearest-rank p-th percentile (0-100) for pipeline, or
// zero when nothing was observed.
func (l *LatencyTracker) Percentile(pipeline string, p float64) time.Duration {
	l.mu.Lock()
	w, ok := l.byStage[pipeline]
	if !ok || len(w.samples) == 0 {
		l.mu.Unlock()
		return 0
	}
	sorted := slices.Clone(w.samples)
	l.mu.Unlock()

	slices.Sort(sorted)
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	return sorted[min(max(rank, 1), len(sorted))-1]
}

// Count returns how many samples pipeline currently holds.
func (l *LatencyTracker) Count(pipeline string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.byStage[pipeline]; ok {
		return len(w.samples)
	}
	return 0
}

// Pipelines lists the pipelines with at least one sample, sorted.
func (l *LatencyTracker) Pipelines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.byStage))
	for name := range l.byStage {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
