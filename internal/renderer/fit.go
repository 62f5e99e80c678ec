package renderer

import (
	"image"
	"math"
)

// FitRect scales a source of the given size into dst without distortion.
// Wider sources fill the width and are centered vertically (letterbox),
// narrower ones fill the height and are centered horizontally (pillarbox).
func FitRect(src image.Point, dst image.Rectangle) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || dst.Empty() {
		return image.Rectangle{}
	}

	srcAspect := float64(src.X) / float64(src.Y)
	dstW, dstH := float64(dst.Dx()), float64(dst.Dy())
	dstAspect := dstW / dstH

	drawW, drawH := dstW, dstH
	var offX, offY float64
	if srcAspect > dstAspect {
		drawH = dstW / srcAspect
		offY = (dstH - drawH) / 2
	} else {
		drawW = dstH * srcAspect
		offX = (dstW - drawW) / 2
	}

	x0 := dst.Min.X + int(math.Round(offX))
	y0 := dst.Min.Y + int(math.Round(offY))
	return image.Rect(x0, y0, x0+int(math.Round(drawW)), y0+int(math.Round(drawH)))
}

// transformRect applies scale about the center of r, then a translation
func transformRect(r image.Rectangle, p DrawParams) image.Rectangle {
	scale := p.scale()
	w := float64(r.Dx()) * scale
	h := float64(r.Dy()) * scale
	cx := float64(r.Min.X) + float64(r.Dx())/2 + p.OffsetX
	cy := float64(r.Min.Y) + float64(r.Dy())/2 + p.OffsetY

	x0 := int(math.Round(cx - w/2))
	y0 := int(math.Round(cy - h/2))
	return image.Rect(x0, y0, x0+int(math.Round(w)), y0+int(math.Round(h)))
}
