package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ivlev/motionpreview/internal/engine"
	"github.com/ivlev/motionpreview/internal/playback"
	"github.com/ivlev/motionpreview/internal/scrubber"
)

type Handler struct {
	preview *engine.Preview
	ctrl    *playback.Controller
	version string
	logger  zerolog.Logger
}

func NewHandler(preview *engine.Preview, ctrl *playback.Controller, version string, logger zerolog.Logger) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{
		preview: preview,
		ctrl:    ctrl,
		version: version,
		logger:  logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	tl := h.preview.Timeline()
	writeJSON(w, http.StatusOK, TimelineResponse{
		TotalDuration: tl.TotalDuration(),
		TotalLabel:    scrubber.FormatTime(tl.TotalDuration()),
		AssetCount:    tl.Len(),
		Segments:      scrubber.Segments(tl),
	})
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.writeState(w)
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Play()
	h.writeState(w)
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Pause()
	h.writeState(w)
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Toggle()
	h.writeState(w)
}

// Seek accepts either an absolute time (?t=) or a slider position (?percent=)
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var at float64
	switch {
	case q.Has("t"):
		v, err := strconv.ParseFloat(q.Get("t"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "t must be a number of seconds")
			return
		}
		at = v
	case q.Has("percent"):
		v, err := strconv.ParseFloat(q.Get("percent"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "percent must be a number between 0 and 100")
			return
		}
		at = scrubber.SliderToTime(v, h.preview.Timeline().TotalDuration())
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "t or percent is required")
		return
	}

	h.ctrl.Seek(at)
	h.writeState(w)
}

func (h *Handler) SeekSegment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "segment index must be an integer")
		return
	}

	at, err := scrubber.SegmentSeekTime(h.preview.Timeline(), index)
	if err != nil {
		h.logger.Debug().Err(err).Msg("segment seek rejected")
		writeError(w, http.StatusNotFound, "SEGMENT_NOT_FOUND", "Segment not found")
		return
	}

	h.ctrl.Seek(at)
	h.writeState(w)
}

func (h *Handler) SkipBack(w http.ResponseWriter, r *http.Request) {
	h.ctrl.SkipBack()
	h.writeState(w)
}

func (h *Handler) SkipForward(w http.ResponseWriter, r *http.Request) {
	h.ctrl.SkipForward()
	h.writeState(w)
}

func (h *Handler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.ParseFloat(r.URL.Query().Get("value"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "value must be a number")
		return
	}

	h.ctrl.SetSpeed(v)
	h.writeState(w)
}

// GetFrame renders the frame at ?t=, or at the playhead when t is absent
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	at := h.ctrl.State().CurrentTime
	if raw := r.URL.Query().Get("t"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "t must be a number of seconds")
			return
		}
		at = v
	}

	frame, info := h.preview.Frame(at)
	defer h.preview.ReleaseFrame(frame)

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		h.logger.Error().Err(err).Float64("t", at).Msg("failed to encode frame")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode frame")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Time", strconv.FormatFloat(info.Time, 'f', -1, 64))
	w.Header().Set("X-Frame-Asset", info.AssetID)
	if info.Transition != "" {
		w.Header().Set("X-Frame-Transition", info.Transition)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) writeState(w http.ResponseWriter) {
	s := h.ctrl.State()
	frame := h.preview.LastFrame()
	writeJSON(w, http.StatusOK, StateResponse{
		State:         s,
		CurrentLabel:  scrubber.FormatTime(s.CurrentTime),
		DurationLabel: scrubber.FormatTime(s.Duration),
		SliderPercent: scrubber.TimeToSlider(s.CurrentTime, s.Duration),
		Frame:         &frame,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
