package effects

import (
	"strings"

	"github.com/ivlev/motionpreview/internal/timeline"
)

// bounceOvershoot controls how far the bounce curve travels past 1
const bounceOvershoot = 1.70158

// Ease maps local progress to a compositing weight. Progress is clamped to
// [0,1]; every curve starts at 0 and ends at 1. Only bounce leaves [0,1] on the way.
func Ease(p float64, kind timeline.Easing) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}

	switch timeline.Easing(strings.ToLower(string(kind))) {
	case timeline.EasingSmooth:
		return easeInOutCubic(p)
	case timeline.EasingSnap:
		return easeOutCubic(p)
	case timeline.EasingBounce:
		return easeOutBack(p)
	default:
		return p
	}
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

func easeOutCubic(t float64) float64 {
	return 1 - pow(1-t, 3)
}

// easeOutBack overshoots past 1 and settles back onto it
func easeOutBack(t float64) float64 {
	c3 := bounceOvershoot + 1
	return 1 + c3*pow(t-1, 3) + bounceOvershoot*pow(t-1, 2)
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
