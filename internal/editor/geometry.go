package editor

import (
	"fmt"
	"math"
)

// Scale converts display pixels to native pixels along the binding dimension
type Scale struct {
	Factor float64
	// Fallback is set when the native extent was unknown and Factor defaulted to 1
	Fallback bool
	// HeightBound is set when the video fills the display vertically
	HeightBound bool
}

// ComputeScale derives the display-to-native factor. The binding dimension is
// the one the video fills edge-to-edge given its aspect ratio.
func ComputeScale(native, display Extent) (Scale, error) {
	if !native.Known() {
		return Scale{Factor: 1, Fallback: true}, nil
	}
	if !display.Known() {
		return Scale{}, fmt.Errorf("%w: display extent %s unknown", ErrNotReady, display)
	}

	if display.Aspect() > native.Aspect() {
		return Scale{Factor: native.Height / display.Height, HeightBound: true}, nil
	}
	return Scale{Factor: native.Width / display.Width}, nil
}

// EffectiveDisplay returns the letterboxed area the video occupies inside the
// player element; the overlay widget is bounded by it.
func EffectiveDisplay(native, display Extent) (Extent, error) {
	if !native.Known() || !display.Known() {
		return Extent{}, ErrNotReady
	}
	aspect := native.Aspect()
	if display.Aspect() > aspect {
		return Extent{Width: display.Height * aspect, Height: display.Height}, nil
	}
	return Extent{Width: display.Width, Height: display.Width / aspect}, nil
}

// ToNative converts display geometry into source pixels. The overlay scale is
// expressed against the overlay asset's native side and rounded to hundredths.
func ToNative(g OverlayGeometry, s Scale, referenceOverlaySize float64) (OverlayGeometryNative, error) {
	if referenceOverlaySize <= 0 {
		return OverlayGeometryNative{}, fmt.Errorf("%w: reference overlay size %v", ErrNotReady, referenceOverlaySize)
	}
	return OverlayGeometryNative{
		X:     int(math.Round(g.X * s.Factor)),
		Y:     int(math.Round(g.Y * s.Factor)),
		Scale: math.Round(g.Size*s.Factor/referenceOverlaySize*100) / 100,
	}, nil
}
