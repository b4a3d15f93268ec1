package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResize(t *testing.T) {
	base := OverlayGeometry{X: 10, Y: 10, Size: 100}

	tests := []struct {
		handle Handle
		want   OverlayGeometry
	}{
		{HandleBottomRight, OverlayGeometry{10, 10, 120}},
		{HandleRight, OverlayGeometry{10, 10, 120}},
		{HandleBottom, OverlayGeometry{10, 10, 120}},
		{HandleTopLeft, OverlayGeometry{-10, -10, 120}},
		{HandleTop, OverlayGeometry{-10, -10, 120}},
		{HandleLeft, OverlayGeometry{-10, -10, 120}},
		{HandleTopRight, OverlayGeometry{10, -10, 120}},
		{HandleBottomLeft, OverlayGeometry{-10, 10, 120}},
	}

	for _, tt := range tests {
		t.Run(tt.handle.String(), func(t *testing.T) {
			got, err := Resize(base, 20, tt.handle)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResizeShrinkKeepsOppositeCorner(t *testing.T) {
	base := OverlayGeometry{X: 50, Y: 40, Size: 100}

	got, err := Resize(base, -30, HandleTopLeft)
	require.NoError(t, err)
	assert.Equal(t, base.X+base.Size, got.X+got.Size)
	assert.Equal(t, base.Y+base.Size, got.Y+got.Size)
}

func TestResizeUnknownHandleIsNoop(t *testing.T) {
	base := OverlayGeometry{X: 10, Y: 10, Size: 100}

	got, err := Resize(base, 20, ParseHandle("diagonal"))
	assert.ErrorIs(t, err, ErrUnknownResizeHandle)
	assert.Equal(t, base, got)
}

func TestParseHandle(t *testing.T) {
	for h, name := range handleNames {
		assert.Equal(t, h, ParseHandle(name))
	}
	assert.Equal(t, HandleUnknown, ParseHandle(""))
	assert.Equal(t, HandleUnknown, ParseHandle("BottomRight"))
}
