package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	d := mustDuration(t, 40)
	s, err := ComputeScale(Extent{1920, 1080}, Extent{960, 540})
	require.NoError(t, err)

	job, err := Build(SelectionRange{Low: 25, High: 75}, d, OverlayGeometry{X: 100, Y: 50, Size: 128}, s, 512)
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 10.0, job.TrimStart)
	assert.Equal(t, 20.0, job.TrimLength)
	assert.Equal(t, 30.0, job.TrimEnd())
	assert.Equal(t, 200, job.OverlayX)
	assert.Equal(t, 100, job.OverlayY)
	assert.Equal(t, 0.5, job.OverlayScale)
}

func TestBuildFreshIDs(t *testing.T) {
	d := mustDuration(t, 10)
	a, err := Build(FullRange, d, OverlayGeometry{Size: 64}, Scale{Factor: 1}, 512)
	require.NoError(t, err)
	b, err := Build(FullRange, d, OverlayGeometry{Size: 64}, Scale{Factor: 1}, 512)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuildRejectsVanishingOverlay(t *testing.T) {
	d := mustDuration(t, 10)

	_, err := Build(FullRange, d, OverlayGeometry{X: 1, Y: 1, Size: 2}, Scale{Factor: 1}, 512)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	// 3/512 rounds up to the smallest representable scale
	job, err := Build(FullRange, d, OverlayGeometry{Size: 3}, Scale{Factor: 1}, 512)
	require.NoError(t, err)
	assert.Equal(t, 0.01, job.OverlayScale)
}

func TestBuildNotReady(t *testing.T) {
	g := OverlayGeometry{Size: 128}

	_, err := Build(FullRange, MediaDuration{}, g, Scale{Factor: 2}, 512)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = Build(FullRange, mustDuration(t, 10), g, Scale{Factor: 1, Fallback: true}, 512)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestBuildAcceptsIdentityScale(t *testing.T) {
	s, err := ComputeScale(Extent{640, 360}, Extent{640, 360})
	require.NoError(t, err)

	job, err := Build(FullRange, mustDuration(t, 10), OverlayGeometry{X: 5, Y: 6, Size: 256}, s, 512)
	require.NoError(t, err)
	assert.Equal(t, 5, job.OverlayX)
	assert.Equal(t, 6, job.OverlayY)
	assert.Equal(t, 0.5, job.OverlayScale)
}

func TestBuildRejectsInvalidSelection(t *testing.T) {
	_, err := Build(SelectionRange{Low: 80, High: 20}, mustDuration(t, 10), OverlayGeometry{Size: 1}, Scale{Factor: 1}, 512)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
