package server

import (
	"github.com/ivlev/motionpreview/internal/engine"
	"github.com/ivlev/motionpreview/internal/playback"
	"github.com/ivlev/motionpreview/internal/scrubber"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type TimelineResponse struct {
	TotalDuration float64            `json:"total_duration"`
	TotalLabel    string             `json:"total_label"`
	AssetCount    int                `json:"asset_count"`
	Segments      []scrubber.Segment `json:"segments"`
}

type StateResponse struct {
	playback.State
	CurrentLabel  string            `json:"current_label"`
	DurationLabel string            `json:"duration_label"`
	SliderPercent float64           `json:"slider_percent"`
	Frame         *engine.FrameInfo `json:"frame,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
