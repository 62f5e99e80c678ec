package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// FramePool recycles snapshots of one preview surface. Frames are handed out
// at display rate by the frame endpoint and the still renderer, so reusing
// them keeps the collector quiet during playback.
type FramePool struct {
	rect image.Rectangle
	pool sync.Pool

	outstanding atomic.Int64
	allocated   atomic.Int64
}

func NewFramePool(surface image.Rectangle) *FramePool {
	p := &FramePool{rect: surface}
	p.pool.New = func() interface{} {
		p.allocated.Add(1)
		return image.NewRGBA(p.rect)
	}
	return p
}

// Get returns a frame with the surface bounds. Contents are undefined.
func (p *FramePool) Get() *image.RGBA {
	p.outstanding.Add(1)
	return p.pool.Get().(*image.RGBA)
}

// Put hands a frame back. Frames that do not match the surface are dropped.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Rect != p.rect {
		return
	}
	p.outstanding.Add(-1)
	p.pool.Put(img)
}

// Bounds is the surface size served by the pool
func (p *FramePool) Bounds() image.Rectangle {
	return p.rect
}

// Outstanding counts frames handed out and not yet returned
func (p *FramePool) Outstanding() int64 {
	return p.outstanding.Load()
}

// Allocated counts frames the pool had to create
func (p *FramePool) Allocated() int64 {
	return p.allocated.Load()
}
