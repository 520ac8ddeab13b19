package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/keel/engine/renderer"
)

func TestProfilerTick(t *testing.T) {
	clock := time.Unix(0, 0)
	p := NewProfiler(WithInterval(time.Second), WithClock(func() time.Time { return clock }))

	for i := 0; i < 9; i++ {
		clock = clock.Add(100 * time.Millisecond)
		if p.Tick(renderer.FrameStats{DrawCalls: 4, Uploads: 1}) {
			t.Fatalf("Tick() reported after %d frames", i+1)
		}
	}
	clock = clock.Add(100 * time.Millisecond)
	if !p.Tick(renderer.FrameStats{DrawCalls: 4, Uploads: 1}) {
		t.Fatal("Tick() did not report after the interval")
	}

	r := p.Last()
	if r.FPS < 9.99 || r.FPS > 10.01 {
		t.Errorf("FPS = %v, want 10", r.FPS)
	}
	if r.DrawCalls != 4 || r.Uploads != 10 {
		t.Errorf("DrawCalls, Uploads = %v, %d, want 4, 10", r.DrawCalls, r.Uploads)
	}

	clock = clock.Add(500 * time.Millisecond)
	if p.Tick(renderer.FrameStats{}) {
		t.Error("Tick() reported before the next interval")
	}
}
