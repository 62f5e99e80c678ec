package timeline

import "strings"

// AssetKind is the content type of a timeline entry
type AssetKind string

const (
	KindImage AssetKind = "image"
	KindVideo AssetKind = "video"
	KindText  AssetKind = "text"
)

// Label is the one-letter tag shown on scrubber segments
func (k AssetKind) Label() string {
	switch k {
	case KindText:
		return "T"
	case KindImage:
		return "I"
	default:
		return "V"
	}
}

// TransitionType selects the compositing effect between two assets
type TransitionType string

const (
	TransitionCut   TransitionType = "cut"
	TransitionFade  TransitionType = "fade"
	TransitionSlide TransitionType = "slide"
	TransitionZoom  TransitionType = "zoom"
	TransitionBlur  TransitionType = "blur"
	TransitionMorph TransitionType = "morph"
)

// Easing shapes how local progress maps to a compositing weight
type Easing string

const (
	EasingLinear Easing = "linear"
	EasingSmooth Easing = "smooth"
	EasingSnap   Easing = "snap"
	EasingBounce Easing = "bounce"
)

// Direction is only meaningful for slide and zoom transitions
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
	DirectionUp       Direction = "up"
	DirectionDown     Direction = "down"
	DirectionZoomIn   Direction = "zoom-in"
	DirectionZoomOut  Direction = "zoom-out"
)

// Asset is one entry on the timeline
type Asset struct {
	ID        string    `yaml:"id" json:"id"`
	Kind      AssetKind `yaml:"kind" json:"kind" validate:"required,oneof=image video text"`
	Source    string    `yaml:"source,omitempty" json:"source,omitempty" validate:"required_unless=Kind text"`
	Text      string    `yaml:"text,omitempty" json:"text,omitempty"`
	Duration  float64   `yaml:"duration" json:"duration" validate:"gt=0"`
	Thumbnail string    `yaml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
}

// Transition sits between two consecutive assets, centered on their boundary
type Transition struct {
	Type      TransitionType `yaml:"type" json:"type"`
	Duration  float64        `yaml:"duration" json:"duration" validate:"gte=0"`
	Easing    Easing         `yaml:"easing,omitempty" json:"easing,omitempty"`
	Direction Direction      `yaml:"direction,omitempty" json:"direction,omitempty"`
}

// Heading returns the direction in canonical lower case
func (t Transition) Heading() Direction {
	return Direction(strings.ToLower(strings.TrimSpace(string(t.Direction))))
}

// Effective returns the compositing behavior actually used for the transition.
// Unknown types fall back to a cut; blur and morph have no kernel yet and render as fades.
func (t Transition) Effective() TransitionType {
	switch TransitionType(strings.ToLower(string(t.Type))) {
	case TransitionFade, TransitionBlur, TransitionMorph:
		return TransitionFade
	case TransitionSlide:
		return TransitionSlide
	case TransitionZoom:
		return TransitionZoom
	default:
		return TransitionCut
	}
}
