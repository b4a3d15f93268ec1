package editor

import "math"

// Slider bounds for the trim selection
const (
	SliderMin = 0.0
	SliderMax = 100.0
)

// ToTime converts a slider value into seconds within the media
func ToTime(value float64, d MediaDuration) (float64, error) {
	seconds, ok := d.Seconds()
	if !ok {
		return 0, ErrNotReady
	}
	return value / SliderMax * seconds, nil
}

// ToSliderValue converts seconds into a slider value clamped into [0,100]
func ToSliderValue(seconds float64, d MediaDuration) (float64, error) {
	total, ok := d.Seconds()
	if !ok {
		return 0, ErrNotReady
	}
	if total == 0 {
		return SliderMin, nil
	}
	return clamp(seconds/total*SliderMax, SliderMin, SliderMax), nil
}

// WindowOf maps a selection onto the media timeline
func WindowOf(r SelectionRange, d MediaDuration) (TimeWindow, error) {
	start, err := ToTime(r.Low, d)
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := ToTime(r.High, d)
	if err != nil {
		return TimeWindow{}, err
	}
	return TimeWindow{Start: start, End: end}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
