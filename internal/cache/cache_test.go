package cache

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/motionpreview/internal/timeline"
)

type fakeLoader struct {
	calls atomic.Int32
	delay time.Duration
	fail  map[string]error
	size  image.Point
}

func (f *fakeLoader) Load(ctx context.Context, asset timeline.Asset) (image.Image, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fail[asset.ID]; ok {
		return nil, err
	}
	size := f.size
	if size == (image.Point{}) {
		size = image.Pt(4, 2)
	}
	return image.NewNRGBA(image.Rect(10, 10, 10+size.X, 10+size.Y)), nil
}

func imageAsset(id string) timeline.Asset {
	return timeline.Asset{ID: id, Kind: timeline.KindImage, Source: id + ".png", Duration: 1}
}

func TestLoadOnce(t *testing.T) {
	loader := &fakeLoader{}
	c := New(loader, Options{}, zerolog.Nop(), nil)

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get before Load should miss")
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Load(context.Background(), imageAsset("a")); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("Expected one decode, got %d", n)
	}

	img, ok := c.Get("a")
	if !ok {
		t.Fatal("Expected cached image")
	}
	if _, isRGBA := img.(*image.RGBA); !isRGBA || img.Bounds().Min != (image.Point{}) {
		t.Errorf("Expected zero-origin RGBA, got %T at %v", img, img.Bounds())
	}
	if c.Size() != 4*2*4 {
		t.Errorf("Expected 32 bytes accounted, got %d", c.Size())
	}
}

func TestConcurrentLoadsShareDecode(t *testing.T) {
	loader := &fakeLoader{delay: 50 * time.Millisecond}
	c := New(loader, Options{}, zerolog.Nop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Load(context.Background(), imageAsset("shared"))
		}()
	}
	wg.Wait()

	if n := loader.calls.Load(); n != 1 {
		t.Errorf("Expected one shared decode, got %d", n)
	}
}

func TestLateFlightDoesNotDecodeAgain(t *testing.T) {
	loader := &fakeLoader{}
	c := New(loader, Options{}, zerolog.Nop(), nil)

	first, err := c.Load(context.Background(), imageAsset("a"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	size := c.Size()

	// A caller that passed the map check before the first decode was stored
	// enters the flight afterwards.
	again, err := c.loadOnce(context.Background(), imageAsset("a"))
	if err != nil {
		t.Fatalf("loadOnce failed: %v", err)
	}
	if again != first {
		t.Error("Expected the stored buffer to be reused")
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("Expected one decode, got %d", n)
	}
	if c.Size() != size {
		t.Errorf("Bytes counted twice: %d then %d", size, c.Size())
	}
}

func TestFailureRemembered(t *testing.T) {
	boom := errors.New("boom")
	loader := &fakeLoader{fail: map[string]error{"bad": boom}}
	c := New(loader, Options{}, zerolog.Nop(), nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Load(context.Background(), imageAsset("bad")); !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("Failed source should not be retried, got %d calls", n)
	}
	if !errors.Is(c.Err("bad"), boom) {
		t.Errorf("Expected recorded failure, got %v", c.Err("bad"))
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("Failed asset must not be served")
	}
}

func TestPreload(t *testing.T) {
	loader := &fakeLoader{fail: map[string]error{"b": errors.New("missing")}}
	c := New(loader, Options{Workers: 2}, zerolog.Nop(), nil)

	assets := []timeline.Asset{
		imageAsset("a"),
		imageAsset("b"),
		{ID: "t", Kind: timeline.KindText, Text: "caption", Duration: 1},
		{ID: "v", Kind: timeline.KindVideo, Source: "v.mp4", Duration: 1},
	}
	if err := c.Preload(context.Background(), assets); err != nil {
		t.Fatalf("Preload should absorb per-asset failures: %v", err)
	}

	if c.Len() != 2 {
		t.Errorf("Expected 2 decoded assets, got %d", c.Len())
	}
	if n := loader.calls.Load(); n != 3 {
		t.Errorf("Text assets must not be loaded, got %d calls", n)
	}
}

func TestPreloadCancelled(t *testing.T) {
	loader := &fakeLoader{delay: time.Second}
	c := New(loader, Options{}, zerolog.Nop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := c.Preload(ctx, []timeline.Asset{imageAsset("slow")}); err == nil {
		t.Error("Expected cancellation error")
	}
	if c.Err("slow") != nil {
		t.Error("Cancellation must not be recorded as a source failure")
	}
}

func TestDownscaleOnLoad(t *testing.T) {
	loader := &fakeLoader{size: image.Pt(400, 100)}
	c := New(loader, Options{MaxSize: image.Pt(200, 200)}, zerolog.Nop(), nil)

	img, err := c.Load(context.Background(), imageAsset("wide"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(200, 50) {
		t.Errorf("Expected 200x50 after downscale, got %v", got)
	}
}

func TestRelease(t *testing.T) {
	c := New(&fakeLoader{}, Options{}, zerolog.Nop(), nil)
	c.Load(context.Background(), imageAsset("a"))
	c.Release()

	if c.Len() != 0 || c.Size() != 0 {
		t.Errorf("Expected empty cache, got len=%d size=%d", c.Len(), c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Released asset still served")
	}
}
