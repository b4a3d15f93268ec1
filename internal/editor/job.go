package editor

import (
	"fmt"

	"github.com/google/uuid"
)

// JobDescription is everything the transcoding engine needs for one output.
// It is built fresh per submission and passed by value.
//
// TrimLength is the length of the trim window in seconds, not its absolute
// end: engines trim with (start, length). Use TrimEnd for the absolute end.
type JobDescription struct {
	ID           string  `json:"id"`
	TrimStart    float64 `json:"trim_start"`
	TrimLength   float64 `json:"trim_length"`
	OverlayX     int     `json:"overlay_x"`
	OverlayY     int     `json:"overlay_y"`
	OverlayScale float64 `json:"overlay_scale"`
}

// TrimEnd returns the absolute end of the trim window in seconds
func (j JobDescription) TrimEnd() float64 {
	return j.TrimStart + j.TrimLength
}

// Build composes a job from the current editor state. A fallback scale (native
// extent unknown) is never turned into a job.
func Build(sel SelectionRange, d MediaDuration, g OverlayGeometry, s Scale, referenceOverlaySize float64) (JobDescription, error) {
	if !d.Known() {
		return JobDescription{}, fmt.Errorf("%w: media duration unknown", ErrNotReady)
	}
	if s.Fallback || s.Factor <= 0 {
		return JobDescription{}, fmt.Errorf("%w: native extent unknown", ErrNotReady)
	}
	if err := sel.Validate(); err != nil {
		return JobDescription{}, err
	}

	window, err := WindowOf(sel, d)
	if err != nil {
		return JobDescription{}, err
	}
	native, err := ToNative(g, s, referenceOverlaySize)
	if err != nil {
		return JobDescription{}, err
	}
	if native.Scale <= 0 {
		return JobDescription{}, fmt.Errorf("%w: overlay size %g rounds to scale 0", ErrInvalidGeometry, g.Size)
	}

	return JobDescription{
		ID:           uuid.NewString(),
		TrimStart:    window.Start,
		TrimLength:   window.Length(),
		OverlayX:     native.X,
		OverlayY:     native.Y,
		OverlayScale: native.Scale,
	}, nil
}
