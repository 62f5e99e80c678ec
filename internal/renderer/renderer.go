package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/motionpreview/internal/metrics"
	"github.com/ivlev/motionpreview/internal/timeline"
)

var (
	TextBackground   = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	TextColor        = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	PlaceholderColor = color.RGBA{R: 0x4b, G: 0x55, B: 0x63, A: 0xff}
	VideoBackground  = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
)

// DefaultText is drawn for text assets without a caption
const DefaultText = "Text Asset"

// DrawParams are the compositing parameters a transition varies per asset
type DrawParams struct {
	Alpha   float64 // 0..1 global alpha
	OffsetX float64 // translation in pixels
	OffsetY float64
	Scale   float64 // about the rect center, 0 means 1
}

// Identity draws an asset opaque, untransformed
func Identity() DrawParams {
	return DrawParams{Alpha: 1, Scale: 1}
}

func (p DrawParams) scale() float64 {
	if p.Scale <= 0 {
		return 1
	}
	return p.Scale
}

// ImageStore hands out pre-decoded asset pixels. Get must not block.
type ImageStore interface {
	Get(id string) (image.Image, bool)
}

type layerKey struct {
	id   string
	w, h int
}

// Renderer draws single assets onto a surface. Fitted layers are built once per
// asset and size; the render path never decodes.
type Renderer struct {
	images  ImageStore
	metrics *metrics.Metrics
	face    font.Face

	mu     sync.Mutex
	layers map[layerKey]*image.RGBA
}

// New creates a renderer reading decoded sources from images
func New(images ImageStore, m *metrics.Metrics, fontSize float64) (*Renderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if fontSize <= 0 {
		fontSize = 24
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}

	return &Renderer{
		images:  images,
		metrics: m,
		face:    face,
		layers:  make(map[layerKey]*image.RGBA),
	}, nil
}

// Render draws asset into rect of surface using the given compositing parameters.
// Pixels outside rect are never touched.
func (r *Renderer) Render(surface *image.RGBA, asset timeline.Asset, rect image.Rectangle, p DrawParams) {
	rect = rect.Intersect(surface.Bounds())
	if rect.Empty() || p.Alpha <= 0 {
		return
	}

	layer := r.layer(asset, rect.Dx(), rect.Dy())
	dst := surface.SubImage(rect).(*image.RGBA)
	target := transformRect(rect, p)

	alpha := math.Min(p.Alpha, 1)
	if p.scale() == 1 && target.Size() == layer.Bounds().Size() {
		if alpha >= 1 {
			draw.Draw(dst, target, layer, image.Point{}, draw.Over)
			return
		}
		mask := image.NewUniform(color.Alpha16{A: uint16(math.Round(alpha * 0xffff))})
		draw.DrawMask(dst, target, layer, image.Point{}, mask, image.Point{}, draw.Over)
		return
	}

	var opts *xdraw.Options
	if alpha < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha16{A: uint16(math.Round(alpha * 0xffff))})}
	}
	xdraw.ApproxBiLinear.Scale(dst, target, layer, layer.Bounds(), draw.Over, opts)
}

// Reset drops every cached layer
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers = make(map[layerKey]*image.RGBA)
}

// layer returns the asset painted at identity into a w×h buffer
func (r *Renderer) layer(asset timeline.Asset, w, h int) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := layerKey{id: asset.ID, w: w, h: h}
	if l, ok := r.layers[key]; ok {
		return l
	}

	bounds := image.Rect(0, 0, w, h)
	switch asset.Kind {
	case timeline.KindText:
		l := image.NewRGBA(bounds)
		r.paintText(l, asset.Text)
		r.layers[key] = l
		return l

	case timeline.KindImage, timeline.KindVideo:
		src, ok := r.images.Get(asset.ID)
		if !ok {
			// Not cached: the source may still arrive, so only the placeholder is kept.
			r.metrics.Placeholder(string(asset.Kind))
			return r.placeholder(asset.Kind, w, h)
		}
		l := image.NewRGBA(bounds)
		fit := FitRect(src.Bounds().Size(), bounds)
		xdraw.CatmullRom.Scale(l, fit, src, src.Bounds(), draw.Src, nil)
		r.layers[key] = l
		return l

	default:
		return r.placeholder(asset.Kind, w, h)
	}
}

func (r *Renderer) placeholder(kind timeline.AssetKind, w, h int) *image.RGBA {
	key := layerKey{id: "\x00placeholder:" + string(kind), w: w, h: h}
	if l, ok := r.layers[key]; ok {
		return l
	}

	l := image.NewRGBA(image.Rect(0, 0, w, h))
	if kind == timeline.KindVideo {
		draw.Draw(l, l.Bounds(), image.NewUniform(VideoBackground), image.Point{}, draw.Src)
		paintPlayGlyph(l)
	} else {
		draw.Draw(l, l.Bounds(), image.NewUniform(PlaceholderColor), image.Point{}, draw.Src)
	}
	r.layers[key] = l
	return l
}

func (r *Renderer) paintText(dst *image.RGBA, text string) {
	if text == "" {
		text = DefaultText
	}
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(TextBackground), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(TextColor),
		Face: r.face,
	}
	advance := d.MeasureString(text).Ceil()
	m := r.face.Metrics()
	x := b.Min.X + (b.Dx()-advance)/2
	y := b.Min.Y + (b.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

// paintPlayGlyph draws a centered right-pointing triangle
func paintPlayGlyph(dst *image.RGBA) {
	b := dst.Bounds()
	size := b.Dy() / 6
	if size < 4 {
		return
	}
	cx, cy := b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2
	left := cx - size/2
	for x := 0; x < size; x++ {
		half := (size - x) / 2
		for y := cy - half; y <= cy+half; y++ {
			dst.SetRGBA(left+x, y, TextColor)
		}
	}
}
