// Package scrubber maps timeline gestures (slider drags, segment clicks) to
// playhead times and describes the per-asset segments shown under the preview.
package scrubber

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ivlev/motionpreview/internal/timeline"
)

// Palette cycles across segments in timeline order
var Palette = []string{
	"#3b82f6", // blue
	"#22c55e", // green
	"#a855f7", // purple
	"#f97316", // orange
	"#ec4899", // pink
}

type Segment struct {
	Index        int     `json:"index"`
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	Start        float64 `json:"start"`
	Duration     float64 `json:"duration"`
	WidthPercent float64 `json:"width_percent"`
	Color        string  `json:"color"`
	Title        string  `json:"title"`
}

// SliderToTime maps a 0-100 slider position onto [0, total]
func SliderToTime(percent, total float64) float64 {
	if math.IsNaN(percent) || total <= 0 {
		return 0
	}
	percent = math.Min(math.Max(percent, 0), 100)
	return percent / 100 * total
}

// TimeToSlider is the inverse of SliderToTime
func TimeToSlider(at, total float64) float64 {
	if math.IsNaN(at) || total <= 0 {
		return 0
	}
	at = math.Min(math.Max(at, 0), total)
	return at / total * 100
}

// Segments returns one clickable segment per asset, sized by its share of
// the total duration.
func Segments(tl *timeline.Timeline) []Segment {
	total := tl.TotalDuration()
	assets := tl.Assets()
	segments := make([]Segment, len(assets))

	for i, a := range assets {
		segments[i] = Segment{
			Index:        i,
			ID:           a.ID,
			Label:        a.Kind.Label(),
			Start:        tl.AssetStart(i),
			Duration:     a.Duration,
			WidthPercent: a.Duration / total * 100,
			Color:        Palette[i%len(Palette)],
			Title:        fmt.Sprintf("%s - %ss", a.Kind, strconv.FormatFloat(a.Duration, 'f', -1, 64)),
		}
	}
	return segments
}

// SegmentSeekTime is the playhead time a click on segment i jumps to
func SegmentSeekTime(tl *timeline.Timeline, i int) (float64, error) {
	if i < 0 || i >= tl.Len() {
		return 0, fmt.Errorf("segment %d: %w", i, timeline.ErrIndexOutOfRange)
	}
	return tl.AssetStart(i), nil
}

// FormatTime renders seconds as m:ss, truncating fractions
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
