package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Frame("fade", time.Millisecond)
	m.CacheLookup(true)
	m.Load(time.Millisecond, errors.New("x"))
	m.Placeholder("image")
	m.CacheBytes(10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("Expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	m := New()

	m.Frame("", time.Millisecond)
	m.Frame("fade", 2*time.Millisecond)
	m.Frame("fade", 2*time.Millisecond)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.Load(time.Millisecond, nil)
	m.Load(time.Millisecond, errors.New("decode"))
	m.Placeholder("video")
	m.CacheBytes(4096)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"single-asset frames", testutil.ToFloat64(m.frames.WithLabelValues("none")), 1},
		{"fade frames", testutil.ToFloat64(m.frames.WithLabelValues("fade")), 2},
		{"hits", testutil.ToFloat64(m.cacheHits), 1},
		{"misses", testutil.ToFloat64(m.cacheMisses), 2},
		{"load failures", testutil.ToFloat64(m.loadFailures), 1},
		{"video placeholders", testutil.ToFloat64(m.placeholders.WithLabelValues("video")), 1},
		{"cache bytes", testutil.ToFloat64(m.cacheBytes), 4096},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Frame("slide", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, name := range []string{
		"motionpreview_frames_rendered_total",
		"motionpreview_frame_render_seconds",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected %s in exposition", name)
		}
	}
}
