package editor

import (
	"fmt"
	"math"
)

// MediaDuration is the source length in seconds. The zero value is unknown.
type MediaDuration struct {
	seconds float64
	known   bool
}

// DurationOf returns a known duration
func DurationOf(seconds float64) (MediaDuration, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return MediaDuration{}, fmt.Errorf("%w: duration %v", ErrInvalidMetadata, seconds)
	}
	return MediaDuration{seconds: seconds, known: true}, nil
}

// Seconds returns the duration and whether it is known
func (d MediaDuration) Seconds() (float64, bool) {
	return d.seconds, d.known
}

// Known reports whether metadata has supplied the duration
func (d MediaDuration) Known() bool {
	return d.known
}

func (d MediaDuration) String() string {
	if !d.known {
		return "unknown"
	}
	return fmt.Sprintf("%.3fs", d.seconds)
}

// Extent is a width/height pair. A zero (or negative) side means unknown.
type Extent struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Known reports whether both sides are positive
func (e Extent) Known() bool {
	return e.Width > 0 && e.Height > 0
}

// Aspect returns width/height, 0 when unknown
func (e Extent) Aspect() float64 {
	if !e.Known() {
		return 0
	}
	return e.Width / e.Height
}

func (e Extent) String() string {
	return fmt.Sprintf("%gx%g", e.Width, e.Height)
}

// SelectionRange is the trim window in slider units
type SelectionRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// FullRange selects the whole media
var FullRange = SelectionRange{Low: SliderMin, High: SliderMax}

// Validate checks 0 <= low <= high <= 100
func (r SelectionRange) Validate() error {
	if math.IsNaN(r.Low) || math.IsNaN(r.High) {
		return fmt.Errorf("%w: NaN bound", ErrInvalidRange)
	}
	if r.Low < SliderMin || r.High > SliderMax {
		return fmt.Errorf("%w: (%g, %g) outside [%g, %g]", ErrInvalidRange, r.Low, r.High, SliderMin, SliderMax)
	}
	if r.Low > r.High {
		return fmt.Errorf("%w: low %g > high %g", ErrInvalidRange, r.Low, r.High)
	}
	return nil
}

// TimeWindow is the trim window in seconds
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Length returns End - Start
func (w TimeWindow) Length() float64 {
	return w.End - w.Start
}

// OverlayGeometry is the overlay widget in display pixels. Size is the side of
// the aspect-locked square.
type OverlayGeometry struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

// OverlayGeometryNative is the overlay placement in source pixels. Scale is the
// multiplier applied to the overlay asset's native width.
type OverlayGeometryNative struct {
	X     int
	Y     int
	Scale float64
}
