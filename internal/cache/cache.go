// Package cache owns decoded asset pixels. Sources are decoded once per asset
// id; the render path only borrows the stored buffers through Get.
package cache

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ivlev/motionpreview/internal/metrics"
	"github.com/ivlev/motionpreview/internal/renderer"
	"github.com/ivlev/motionpreview/internal/source"
	"github.com/ivlev/motionpreview/internal/timeline"
)

// ErrLoadTimeout marks sources that did not finish decoding before the preload deadline
var ErrLoadTimeout = errors.New("asset load timed out")

type Options struct {
	Budget  int64       // soft limit in bytes, 0 disables the check
	Workers int         // parallel decodes during Preload
	MaxSize image.Point // decoded images larger than this are downscaled on load
}

type Cache struct {
	loader  source.Loader
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[string]*image.RGBA
	failed  map[string]error
	size    int64

	group singleflight.Group
}

func New(loader source.Loader, opts Options, logger zerolog.Logger, m *metrics.Metrics) *Cache {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Cache{
		loader:  loader,
		opts:    opts,
		logger:  logger,
		metrics: m,
		entries: make(map[string]*image.RGBA),
		failed:  make(map[string]error),
	}
}

// Get returns the decoded pixels for an asset without blocking
func (c *Cache) Get(id string) (image.Image, bool) {
	c.mu.RLock()
	img, ok := c.entries[id]
	c.mu.RUnlock()

	c.metrics.CacheLookup(ok)
	if !ok {
		return nil, false
	}
	return img, true
}

// Err reports the recorded load failure for an asset, if any
func (c *Cache) Err(id string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failed[id]
}

// Load decodes the asset source once. Concurrent callers for the same id share
// one decode, and a failure is remembered so it is not retried every frame.
func (c *Cache) Load(ctx context.Context, asset timeline.Asset) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.entries[asset.ID]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	if err, ok := c.failed[asset.ID]; ok {
		c.mu.RUnlock()
		return nil, err
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(asset.ID, func() (interface{}, error) {
		return c.loadOnce(ctx, asset)
	})
	if err != nil {
		return nil, err
	}
	return v.(*image.RGBA), nil
}

// loadOnce runs inside the singleflight call. A caller that missed the map
// before an earlier call stored its result must not decode again.
func (c *Cache) loadOnce(ctx context.Context, asset timeline.Asset) (*image.RGBA, error) {
	c.mu.RLock()
	img, ok := c.entries[asset.ID]
	err, failed := c.failed[asset.ID]
	c.mu.RUnlock()

	if ok {
		return img, nil
	}
	if failed {
		return nil, err
	}
	return c.load(ctx, asset)
}

func (c *Cache) load(ctx context.Context, asset timeline.Asset) (*image.RGBA, error) {
	start := time.Now()
	img, err := c.loader.Load(ctx, asset)
	c.metrics.Load(time.Since(start), err)

	if err != nil {
		// Cancellation is not a property of the source; allow a later retry.
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			c.mu.Lock()
			c.failed[asset.ID] = err
			c.mu.Unlock()
		}
		c.logger.Warn().Err(err).Str("asset", asset.ID).Str("source", asset.Source).Msg("asset source unavailable, using placeholder")
		return nil, err
	}

	rgba := c.toRGBA(img)
	n := int64(len(rgba.Pix))

	c.mu.Lock()
	c.entries[asset.ID] = rgba
	c.size += n
	size := c.size
	c.mu.Unlock()

	c.metrics.CacheBytes(size)
	if c.opts.Budget > 0 && size > c.opts.Budget {
		c.logger.Warn().Int64("bytes", size).Int64("budget", c.opts.Budget).Msg("decoded asset cache over budget")
	}
	c.logger.Debug().
		Str("asset", asset.ID).
		Int("width", rgba.Bounds().Dx()).
		Int("height", rgba.Bounds().Dy()).
		Dur("took", time.Since(start)).
		Msg("asset decoded")
	return rgba, nil
}

// toRGBA normalizes to a zero-origin RGBA, downscaling oversized sources
func (c *Cache) toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	limit := c.opts.MaxSize
	if limit.X > 0 && limit.Y > 0 && (b.Dx() > limit.X || b.Dy() > limit.Y) {
		fit := renderer.FitRect(b.Size(), image.Rectangle{Max: limit})
		dst := image.NewRGBA(image.Rectangle{Max: fit.Size()})
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}

	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rectangle{Max: b.Size()})
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Preload decodes every image and video source with bounded parallelism.
// Individual failures are absorbed; only cancellation is returned.
func (c *Cache) Preload(ctx context.Context, assets []timeline.Asset) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for _, a := range assets {
		if a.Kind == timeline.KindText {
			continue
		}
		g.Go(func() error {
			if _, err := c.Load(ctx, a); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	return g.Wait()
}

// Pending lists the image and video assets that have neither pixels nor a
// recorded failure
func (c *Cache) Pending(assets []timeline.Asset) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for _, a := range assets {
		if a.Kind == timeline.KindText {
			continue
		}
		_, ok := c.entries[a.ID]
		_, failed := c.failed[a.ID]
		if !ok && !failed {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// MarkFailed records a failure for an asset that has no decoded pixels
func (c *Cache) MarkFailed(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		c.failed[id] = err
	}
}

// Release drops every decoded buffer and recorded failure
func (c *Cache) Release() {
	c.mu.Lock()
	c.entries = make(map[string]*image.RGBA)
	c.failed = make(map[string]error)
	c.size = 0
	c.mu.Unlock()
	c.metrics.CacheBytes(0)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Size returns the bytes held by decoded buffers
func (c *Cache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}
