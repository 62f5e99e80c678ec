package engine

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/motionpreview/internal/cache"
	"github.com/ivlev/motionpreview/internal/effects"
	"github.com/ivlev/motionpreview/internal/metrics"
	"github.com/ivlev/motionpreview/internal/renderer"
	"github.com/ivlev/motionpreview/internal/source"
	"github.com/ivlev/motionpreview/internal/system"
	"github.com/ivlev/motionpreview/internal/timeline"
)

const progressBarHeight = 4

var (
	background    = color.RGBA{A: 0xff}
	progressColor = color.NRGBA{A: 77} // black at 30%
)

type Options struct {
	Width          int
	Height         int
	FontSize       float64
	Cache          cache.Options
	PreloadTimeout time.Duration
	DeclaredTotal  float64 // caller's idea of the total, reconciled against the timeline
}

// FrameInfo describes what RenderAt drew
type FrameInfo struct {
	Time               float64 `json:"time"`
	AssetIndex         int     `json:"asset_index"`
	AssetID            string  `json:"asset_id"`
	AssetProgress      float64 `json:"asset_progress"`
	Transition         string  `json:"transition,omitempty"`
	TransitionIndex    int     `json:"transition_index"`
	TransitionProgress float64 `json:"transition_progress"`
}

// Preview renders frames of one timeline onto a fixed-size surface
type Preview struct {
	timeline   *timeline.Timeline
	cache      *cache.Cache
	renderer   *renderer.Renderer
	compositor *effects.Compositor
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	opts       Options

	mu      sync.Mutex
	surface *image.RGBA
	frames  *system.FramePool
	last    FrameInfo
}

func NewPreview(tl *timeline.Timeline, loader source.Loader, opts Options, m *metrics.Metrics, logger zerolog.Logger) (*Preview, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid surface %dx%d", opts.Width, opts.Height)
	}

	c := cache.New(loader, opts.Cache, logger.With().Str("component", "cache").Logger(), m)
	r, err := renderer.New(c, m, opts.FontSize)
	if err != nil {
		return nil, err
	}

	if opts.DeclaredTotal > 0 {
		if total, ok := tl.Reconcile(opts.DeclaredTotal); !ok {
			logger.Warn().
				Float64("declared", opts.DeclaredTotal).
				Float64("computed", total).
				Msg("declared total duration disagrees with assets, using computed")
		}
	}

	surface := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	return &Preview{
		timeline:   tl,
		cache:      c,
		renderer:   r,
		compositor: effects.NewCompositor(r),
		metrics:    m,
		logger:     logger,
		opts:       opts,
		surface:    surface,
		frames:     system.NewFramePool(surface.Rect),
	}, nil
}

func (p *Preview) Timeline() *timeline.Timeline {
	return p.timeline
}

// Preload decodes every asset source before playback starts. Sources still
// loading when PreloadTimeout expires are recorded as failed and render as
// placeholders; only cancellation of ctx itself is returned.
func (p *Preview) Preload(ctx context.Context) error {
	loadCtx := ctx
	if p.opts.PreloadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, p.opts.PreloadTimeout)
		defer cancel()
	}

	start := time.Now()
	assets := p.timeline.Assets()
	if err := p.cache.Preload(loadCtx, assets); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("preload assets: %w", err)
		}
		pending := p.cache.Pending(assets)
		for _, id := range pending {
			p.cache.MarkFailed(id, cache.ErrLoadTimeout)
		}
		p.logger.Warn().
			Strs("assets", pending).
			Dur("timeout", p.opts.PreloadTimeout).
			Msg("preload deadline reached, using placeholders")
	}

	failed := 0
	for _, a := range assets {
		if p.cache.Err(a.ID) != nil {
			failed++
		}
	}
	p.logger.Info().
		Int("decoded", p.cache.Len()).
		Int("failed", failed).
		Int64("bytes", p.cache.Size()).
		Dur("took", time.Since(start)).
		Msg("assets preloaded")
	return nil
}

// RenderAt draws the frame for a playhead time onto the preview surface and
// records it as the last frame. The time is clamped into the timeline.
func (p *Preview) RenderAt(at float64) FrameInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = p.renderLocked(at)
	return p.last
}

func (p *Preview) renderLocked(at float64) FrameInfo {
	start := time.Now()
	at = p.timeline.Clamp(at)

	draw.Draw(p.surface, p.surface.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	pos := p.timeline.ResolveAsset(at)
	info := FrameInfo{
		Time:          at,
		AssetIndex:    pos.Index,
		AssetID:       pos.Asset.ID,
		AssetProgress: pos.Progress,
	}

	if tp, ok := p.timeline.ResolveTransition(at); ok {
		prev := p.timeline.Asset(tp.Index)
		next := p.timeline.Asset(tp.Index + 1)
		p.compositor.RenderTransition(p.surface, prev, next, tp.Transition, tp.Progress)

		info.Transition = string(tp.Transition.Effective())
		info.TransitionIndex = tp.Index
		info.TransitionProgress = tp.Progress
	} else {
		p.renderer.Render(p.surface, pos.Asset, p.surface.Bounds(), renderer.Identity())
	}

	if pos.Progress < 1 {
		p.drawProgress(pos.Progress)
	}

	p.metrics.Frame(info.Transition, time.Since(start))
	p.logger.Trace().
		Float64("t", at).
		Int("asset", pos.Index).
		Str("transition", info.Transition).
		Msg("frame")
	return info
}

// drawProgress shades the bottom edge up to the active asset's progress
func (p *Preview) drawProgress(progress float64) {
	b := p.surface.Bounds()
	width := int(float64(b.Dx()) * progress)
	if width <= 0 {
		return
	}
	bar := image.Rect(b.Min.X, b.Max.Y-progressBarHeight, b.Min.X+width, b.Max.Y)
	draw.Draw(p.surface, bar, image.NewUniform(progressColor), image.Point{}, draw.Over)
}

// Frame renders the frame at t and returns a pooled copy of the surface.
// Callers hand it back with ReleaseFrame. LastFrame is left untouched, so
// ad hoc renders do not disturb the playhead's frame.
func (p *Preview) Frame(at float64) (*image.RGBA, FrameInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := p.renderLocked(at)
	out := p.frames.Get()
	copy(out.Pix, p.surface.Pix)
	return out, info
}

// ReleaseFrame returns a frame obtained from Frame
func (p *Preview) ReleaseFrame(frame *image.RGBA) {
	p.frames.Put(frame)
}

// LastFrame describes the most recent RenderAt frame
func (p *Preview) LastFrame() FrameInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Close releases decoded sources and fitted layers
func (p *Preview) Close() {
	p.cache.Release()
	p.renderer.Reset()
}
