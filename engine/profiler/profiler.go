package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/keel/common"
	"github.com/Carmen-Shannon/keel/engine/renderer"
)

// Report is one interval of frame and memory statistics.
type Report struct {
	// FPS is the number of frames per second over the interval.
	FPS float64
	// DrawCalls is the mean number of main pass draws per frame.
	DrawCalls float64
	// Uploads is the total number of GPU uploads over the interval.
	Uploads int
	// HeapMB is the live heap size in megabytes.
	HeapMB float64
	// AllocRateMB is the heap allocation rate in megabytes per second.
	AllocRateMB float64
	// GCCount is the total number of completed GC cycles.
	GCCount uint32
	// MaxPause is the longest GC pause since the previous report.
	MaxPause time.Duration
}

// Profiler tracks frame rate, renderer work and memory statistics.
// Outputs a report through the package logger at a configurable interval.
type Profiler struct {
	frameCount     int
	drawCalls      int
	uploads        int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Report
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: the builder options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per rendered frame.
// Logs a report when the update interval has elapsed.
//
// Parameters:
//   - stats: the renderer statistics of the frame
//
// Returns:
//   - bool: true if a report was produced this tick, false otherwise
func (p *Profiler) Tick(stats renderer.FrameStats) bool {
	p.frameCount++
	p.drawCalls += stats.DrawCalls
	p.uploads += stats.Uploads

	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		DrawCalls:   float64(p.drawCalls) / float64(p.frameCount),
		Uploads:     p.uploads,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	start := p.lastGCCount
	if r.GCCount-start > 256 {
		start = r.GCCount - 256
	}
	for i := start; i < r.GCCount; i++ {
		r.MaxPause = max(r.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
	}

	common.Logger().Info("profiler",
		"fps", r.FPS,
		"draw_calls", r.DrawCalls,
		"uploads", r.Uploads,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb", r.AllocRateMB,
		"gc", r.GCCount,
		"max_pause", r.MaxPause,
	)

	p.last = r
	p.frameCount, p.drawCalls, p.uploads = 0, 0, 0
	p.lastTime = current
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent report, or the zero Report before the first interval elapses.
//
// Returns:
//   - Report: the report
func (p *Profiler) Last() Report {
	return p.last
}
