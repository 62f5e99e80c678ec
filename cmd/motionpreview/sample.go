package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/motionpreview/internal/timeline"
)

// writeSample creates two synthetic slides and a timeline document that uses
// every transition type, so a fresh checkout has something to preview.
func writeSample(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	wide := filepath.Join(dir, "sample_wide.png")
	if err := writeSlide(wide, 1920, 1080, color.Gray{Y: 240}); err != nil {
		return "", err
	}
	tall := filepath.Join(dir, "sample_tall.png")
	if err := writeSlide(tall, 1080, 1350, color.Gray{Y: 200}); err != nil {
		return "", err
	}

	doc := &timeline.Document{
		Version: "1.0",
		Assets: []timeline.Asset{
			{ID: "intro", Kind: timeline.KindText, Text: "Motion Preview", Duration: 2},
			{ID: "wide", Kind: timeline.KindImage, Source: wide, Duration: 3},
			{ID: "tall", Kind: timeline.KindImage, Source: tall, Duration: 3},
			{ID: "clip", Kind: timeline.KindVideo, Source: filepath.Join(dir, "clip.mp4"), Duration: 2},
			{Kind: timeline.KindText, Duration: 2},
		},
		Transitions: []timeline.Transition{
			{Type: timeline.TransitionFade, Duration: 1, Easing: timeline.EasingSmooth},
			{Type: timeline.TransitionSlide, Duration: 0.5, Easing: timeline.EasingSnap, Direction: timeline.DirectionForward},
			{Type: timeline.TransitionZoom, Duration: 1, Easing: timeline.EasingBounce, Direction: timeline.DirectionZoomIn},
			{Type: timeline.TransitionCut},
		},
	}

	tl, err := doc.Timeline()
	if err != nil {
		return "", err
	}
	doc.TotalDuration = tl.TotalDuration()

	path := filepath.Join(dir, fmt.Sprintf("timeline_%s.yaml", time.Now().Format("2006-01-02_15-04-05")))
	if err := timeline.WriteDocument(doc, path); err != nil {
		return "", err
	}
	return path, nil
}

// writeSlide draws a light slide with dark title and content blocks
func writeSlide(path string, width, height int, bg color.Gray) error {
	img := image.NewGray(image.Rect(0, 0, width, height))
	fillRect(img, 0, 0, width, height, bg)

	fillRect(img, width/10, height/10, width*9/10, height/4, color.Gray{Y: 50})
	fillRect(img, width/10, height*3/10, width*9/10, height*7/20, color.Gray{Y: 80})
	fillRect(img, width/10, height*2/5, width*9/20, height*13/20, color.Gray{Y: 60})
	fillRect(img, width*11/20, height*2/5, width*9/10, height*13/20, color.Gray{Y: 60})
	fillRect(img, width/10, height*22/25, width*9/10, height*19/20, color.Gray{Y: 100})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func fillRect(img *image.Gray, x1, y1, x2, y2 int, c color.Gray) {
	r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, c)
		}
	}
}
