package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ivlev/motionpreview/internal/playback"
	"github.com/ivlev/motionpreview/internal/system"
)

// BenchReport summarizes a headless playback run
type BenchReport struct {
	Build        string
	Timeline     string
	Frames       int
	Transitions  int
	Playback     float64 // timeline seconds covered
	Wall         time.Duration
	AvgFrame     time.Duration
	MaxFrame     time.Duration
	EffectiveFPS float64
	Stats        system.Stats
}

func (r BenchReport) String() string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Frames: %d (%d in transitions)\n"+
			"Timeline: %.2fs in %.2fs wall\n"+
			"Frame render: avg %s, max %s\n"+
			"Effective FPS: %.2f\n"+
			"RSS: %.1f MB | Heap: %.1f MB | CPU: %.1f%% | Goroutines: %d\n"+
			"----------------------------\n",
		r.Build,
		r.Frames, r.Transitions,
		r.Playback, r.Wall.Seconds(),
		r.AvgFrame, r.MaxFrame,
		r.EffectiveFPS,
		float64(r.Stats.RSS)/(1<<20), float64(r.Stats.HeapAlloc)/(1<<20), r.Stats.CPUPercent, r.Stats.Goroutines,
	)
}

// AppendLog writes a one-line summary to a benchmark log file
func (r BenchReport) AppendLog(path string) error {
	entry := fmt.Sprintf("[%s] Build: %s | Timeline: %s | Frames: %d | Playback: %.2fs | Wall: %.2fs | Avg: %s | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		r.Build,
		filepath.Base(r.Timeline),
		r.Frames,
		r.Playback,
		r.Wall.Seconds(),
		r.AvgFrame,
		r.EffectiveFPS,
	)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}

// Bench plays the whole timeline through a controller driven by sched and
// measures every redraw. It returns when playback reaches the end or ctx ends.
func (p *Preview) Bench(ctx context.Context, sched playback.Scheduler, opts playback.Options) (BenchReport, error) {
	var (
		report  BenchReport
		total   time.Duration
		done    = make(chan struct{})
		endOnce sync.Once
	)
	end := p.timeline.TotalDuration()

	redraw := func(at float64) {
		start := time.Now()
		info := p.RenderAt(at)
		d := time.Since(start)

		report.Frames++
		total += d
		if d > report.MaxFrame {
			report.MaxFrame = d
		}
		if info.Transition != "" {
			report.Transitions++
		}
		report.Playback = at
		if at >= end {
			endOnce.Do(func() { close(done) })
		}
	}

	ctrl := playback.NewController(end, sched, redraw, opts, p.logger)
	defer ctrl.Close()

	started := time.Now()
	ctrl.Play()

	select {
	case <-done:
	case <-ctx.Done():
		ctrl.Close()
		return report, ctx.Err()
	}
	report.Wall = time.Since(started)

	if report.Frames > 0 {
		report.AvgFrame = total / time.Duration(report.Frames)
	}
	if report.Wall > 0 {
		report.EffectiveFPS = float64(report.Frames) / report.Wall.Seconds()
	}

	stats, err := system.TakeStats(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("process stats unavailable")
	}
	report.Stats = stats
	return report, nil
}
