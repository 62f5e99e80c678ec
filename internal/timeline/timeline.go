package timeline

import (
	"math"
)

// overlapTolerance absorbs float rounding when two windows exactly touch
const overlapTolerance = 1e-9

// Timeline is an immutable, validated sequence of assets and the transitions between them
type Timeline struct {
	assets      []Asset
	transitions []Transition
	starts      []float64
	total       float64
}

// AssetPosition is the result of resolving a time to a single asset
type AssetPosition struct {
	Asset    Asset
	Index    int
	Progress float64 // 0..1 within the asset's own duration
}

// TransitionPosition is the result of resolving a time inside a transition window
type TransitionPosition struct {
	Transition Transition
	Index      int     // transition sits between assets[Index] and assets[Index+1]
	Progress   float64 // 0 at window start, 1 at window end
}

// New validates the inputs and builds a timeline. The slices are copied.
func New(assets []Asset, transitions []Transition) (*Timeline, error) {
	if len(assets) == 0 {
		return nil, &ValidationError{Field: "assets", Index: -1, Err: ErrNoAssets}
	}
	if len(transitions) != len(assets)-1 {
		return nil, &ValidationError{Field: "transitions", Index: -1, Err: ErrTransitionCount}
	}

	seen := make(map[string]struct{}, len(assets))
	for i, a := range assets {
		if a.ID == "" {
			return nil, &ValidationError{Field: "assets", Index: i, Err: ErrMissingID}
		}
		if _, dup := seen[a.ID]; dup {
			return nil, &ValidationError{Field: "assets", Index: i, Err: ErrDuplicateID}
		}
		seen[a.ID] = struct{}{}

		switch a.Kind {
		case KindText:
		case KindImage, KindVideo:
			if a.Source == "" {
				return nil, &ValidationError{Field: "assets", Index: i, Err: ErrMissingSource}
			}
		default:
			return nil, &ValidationError{Field: "assets", Index: i, Err: ErrUnknownKind}
		}

		if !(a.Duration > 0) || math.IsInf(a.Duration, 0) {
			return nil, &ValidationError{Field: "assets", Index: i, Err: ErrNonPositiveDuration}
		}
	}

	for i, tr := range transitions {
		if !(tr.Duration >= 0) || math.IsInf(tr.Duration, 0) {
			return nil, &ValidationError{Field: "transitions", Index: i, Err: ErrNegativeTransition}
		}
	}

	// Each asset must hold the half windows of both neighbouring transitions.
	for i, a := range assets {
		var carved float64
		if i > 0 {
			carved += transitions[i-1].Duration / 2
		}
		if i < len(transitions) {
			carved += transitions[i].Duration / 2
		}
		if carved > a.Duration+overlapTolerance {
			return nil, &ValidationError{Field: "assets", Index: i, Err: ErrOverlappingTransitions}
		}
	}

	t := &Timeline{
		assets:      append([]Asset(nil), assets...),
		transitions: append([]Transition(nil), transitions...),
		starts:      make([]float64, len(assets)),
	}
	for i, a := range t.assets {
		t.starts[i] = t.total
		t.total += a.Duration
	}
	return t, nil
}

// TotalDuration is the sum of asset durations. Transitions overlap, they do not add length.
func (t *Timeline) TotalDuration() float64 {
	return t.total
}

// Len returns the number of assets
func (t *Timeline) Len() int {
	return len(t.assets)
}

// Assets returns a copy of the asset list
func (t *Timeline) Assets() []Asset {
	return append([]Asset(nil), t.assets...)
}

// Transitions returns a copy of the transition list
func (t *Timeline) Transitions() []Transition {
	return append([]Transition(nil), t.transitions...)
}

// Asset returns the asset at index i
func (t *Timeline) Asset(i int) Asset {
	return t.assets[i]
}

// AssetStart returns the timeline time at which asset i begins
func (t *Timeline) AssetStart(i int) float64 {
	if i <= 0 {
		return 0
	}
	if i >= len(t.starts) {
		return t.total
	}
	return t.starts[i]
}

// Clamp bounds a time to [0, TotalDuration]
func (t *Timeline) Clamp(at float64) float64 {
	if math.IsNaN(at) || at < 0 {
		return 0
	}
	if at > t.total {
		return t.total
	}
	return at
}

// ResolveAsset maps a time to the active asset. The first asset whose end is at
// or after the time wins, so a boundary belongs to the earlier asset. Times past
// the end resolve to the last asset with progress 1.
func (t *Timeline) ResolveAsset(at float64) AssetPosition {
	if math.IsNaN(at) {
		at = 0
	}
	for i, a := range t.assets {
		start := t.starts[i]
		if at <= start+a.Duration {
			return AssetPosition{
				Asset:    a,
				Index:    i,
				Progress: clamp01((at - start) / a.Duration),
			}
		}
	}
	last := len(t.assets) - 1
	return AssetPosition{Asset: t.assets[last], Index: last, Progress: 1}
}

// ResolveTransition reports the transition whose window contains the time, if
// any. Zero-length transitions never match: the boundary is an instant cut and
// ResolveAsset is authoritative there.
func (t *Timeline) ResolveTransition(at float64) (TransitionPosition, bool) {
	if math.IsNaN(at) {
		return TransitionPosition{}, false
	}
	for i, tr := range t.transitions {
		if tr.Duration <= 0 {
			continue
		}
		boundary := t.starts[i+1]
		windowStart := boundary - tr.Duration/2
		windowEnd := boundary + tr.Duration/2
		if at >= windowStart && at <= windowEnd {
			return TransitionPosition{
				Transition: tr,
				Index:      i,
				Progress:   clamp01((at - windowStart) / tr.Duration),
			}, true
		}
	}
	return TransitionPosition{}, false
}

// WithAssetDuration returns a new timeline with asset i resized
func (t *Timeline) WithAssetDuration(i int, d float64) (*Timeline, error) {
	assets := t.Assets()
	if i < 0 || i >= len(assets) {
		return nil, &ValidationError{Field: "assets", Index: i, Err: ErrIndexOutOfRange}
	}
	assets[i].Duration = d
	return New(assets, t.transitions)
}

// Reconcile compares a caller-declared total with the computed one. The
// computed value is always returned; ok is false when they disagree.
func (t *Timeline) Reconcile(declared float64) (total float64, ok bool) {
	return t.total, math.Abs(declared-t.total) <= overlapTolerance
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
