package effects

import (
	"image"

	"github.com/ivlev/motionpreview/internal/renderer"
	"github.com/ivlev/motionpreview/internal/timeline"
)

// zoomAmount is the extra scale the outgoing asset reaches at full weight
const zoomAmount = 0.2

// Layer is one draw pass of a transition frame
type Layer struct {
	Next   bool // false draws the outgoing asset, true the incoming one
	Params renderer.DrawParams
}

// AssetRenderer draws one asset onto a surface
type AssetRenderer interface {
	Render(surface *image.RGBA, asset timeline.Asset, rect image.Rectangle, p renderer.DrawParams)
}

// Plan returns the ordered draw passes for a transition at the given local progress
func Plan(tr timeline.Transition, progress float64, rect image.Rectangle) []Layer {
	w := Ease(progress, tr.Easing)

	switch tr.Effective() {
	case timeline.TransitionFade:
		return []Layer{
			{Next: false, Params: renderer.DrawParams{Alpha: 1 - w, Scale: 1}},
			{Next: true, Params: renderer.DrawParams{Alpha: w, Scale: 1}},
		}

	case timeline.TransitionSlide:
		return planSlide(tr.Heading(), w, rect)

	case timeline.TransitionZoom:
		// Only the outgoing asset animates; it stays dominant until the midpoint.
		if progress >= 0.5 {
			return []Layer{{Next: true, Params: renderer.Identity()}}
		}
		scale := 1 + w*zoomAmount
		if tr.Heading() == timeline.DirectionZoomOut {
			scale = 1 - w*zoomAmount
		}
		return []Layer{{Next: false, Params: renderer.DrawParams{Alpha: 1, Scale: scale}}}

	default:
		if progress >= 0.5 {
			return []Layer{{Next: true, Params: renderer.Identity()}}
		}
		return []Layer{{Next: false, Params: renderer.Identity()}}
	}
}

// planSlide pushes the outgoing asset out while the incoming one follows it in
func planSlide(dir timeline.Direction, w float64, rect image.Rectangle) []Layer {
	width, height := float64(rect.Dx()), float64(rect.Dy())
	prev := renderer.Identity()
	next := renderer.Identity()

	switch dir {
	case timeline.DirectionBackward:
		prev.OffsetX = width * w
		next.OffsetX = -width * (1 - w)
	case timeline.DirectionUp:
		prev.OffsetY = -height * w
		next.OffsetY = height * (1 - w)
	case timeline.DirectionDown:
		prev.OffsetY = height * w
		next.OffsetY = -height * (1 - w)
	default:
		prev.OffsetX = -width * w
		next.OffsetX = width * (1 - w)
	}

	return []Layer{{Next: false, Params: prev}, {Next: true, Params: next}}
}

// Compositor renders transition frames through an asset renderer
type Compositor struct {
	renderer AssetRenderer
}

func NewCompositor(r AssetRenderer) *Compositor {
	return &Compositor{renderer: r}
}

// RenderTransition draws the blend of prev and next onto the whole surface
func (c *Compositor) RenderTransition(surface *image.RGBA, prev, next timeline.Asset, tr timeline.Transition, progress float64) {
	rect := surface.Bounds()
	for _, l := range Plan(tr, progress, rect) {
		asset := prev
		if l.Next {
			asset = next
		}
		c.renderer.Render(surface, asset, rect, l.Params)
	}
}
