package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScale(t *testing.T) {
	tests := []struct {
		name        string
		native      Extent
		display     Extent
		want        float64
		heightBound bool
	}{
		{"same aspect half size", Extent{1920, 1080}, Extent{960, 540}, 2, false},
		{"taller display is width bound", Extent{1920, 1080}, Extent{960, 600}, 2, false},
		{"wider display is height bound", Extent{1920, 1080}, Extent{1200, 540}, 2, true},
		{"portrait video in landscape player", Extent{1080, 1920}, Extent{800, 480}, 4, true},
		{"identity", Extent{640, 360}, Extent{640, 360}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ComputeScale(tt.native, tt.display)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, s.Factor, 1e-9)
			assert.Equal(t, tt.heightBound, s.HeightBound)
			assert.False(t, s.Fallback)
		})
	}
}

func TestComputeScaleUnknownNativeFallsBack(t *testing.T) {
	s, err := ComputeScale(Extent{}, Extent{960, 540})
	require.NoError(t, err)
	assert.True(t, s.Fallback)
	assert.Equal(t, 1.0, s.Factor)

	native, err := ToNative(OverlayGeometry{X: 12, Y: 7, Size: 512}, s, 512)
	require.NoError(t, err)
	assert.Equal(t, OverlayGeometryNative{X: 12, Y: 7, Scale: 1}, native)
}

func TestComputeScaleUnknownDisplay(t *testing.T) {
	_, err := ComputeScale(Extent{1920, 1080}, Extent{})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestEffectiveDisplay(t *testing.T) {
	got, err := EffectiveDisplay(Extent{1920, 1080}, Extent{960, 600})
	require.NoError(t, err)
	assert.InDelta(t, 960, got.Width, 1e-9)
	assert.InDelta(t, 540, got.Height, 1e-9)

	got, err = EffectiveDisplay(Extent{1920, 1080}, Extent{1200, 540})
	require.NoError(t, err)
	assert.InDelta(t, 960, got.Width, 1e-9)
	assert.InDelta(t, 540, got.Height, 1e-9)
}

func TestToNative(t *testing.T) {
	s := Scale{Factor: 2}
	got, err := ToNative(OverlayGeometry{X: 10.4, Y: 33.3, Size: 128}, s, 512)
	require.NoError(t, err)
	assert.Equal(t, 21, got.X)
	assert.Equal(t, 67, got.Y)
	assert.Equal(t, 0.5, got.Scale)
}

func TestToNativeRoundsScaleToHundredths(t *testing.T) {
	got, err := ToNative(OverlayGeometry{Size: 100}, Scale{Factor: 1.5}, 512)
	require.NoError(t, err)
	// 100*1.5/512 = 0.29296875
	assert.Equal(t, 0.29, got.Scale)
}

func TestToNativeRequiresReferenceSize(t *testing.T) {
	_, err := ToNative(OverlayGeometry{Size: 100}, Scale{Factor: 1}, 0)
	assert.ErrorIs(t, err, ErrNotReady)
}
