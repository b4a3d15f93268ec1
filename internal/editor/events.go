package editor

import (
	"fmt"
	"math"
)

// Event is a UI or media event processed by the controller loop. The set is
// closed: only types in this package implement it.
type Event interface {
	apply(c *Controller) error
}

// MetadataLoaded delivers the source duration and native size
type MetadataLoaded struct {
	Duration float64
	Native   Extent
}

// SelectionChanged is a slider move
type SelectionChanged struct {
	Range SelectionRange
}

// PlaybackTick reports the player's current position in seconds
type PlaybackTick struct {
	Time float64
}

// DragStopped commits the overlay's new top-left corner in display pixels
type DragStopped struct {
	X float64
	Y float64
}

// ResizeStopped commits a resize of Delta pixels from Handle
type ResizeStopped struct {
	Delta  float64
	Handle Handle
}

// SubmitRequested starts a transcoding job. Done, when set, receives exactly
// one Result once the job finishes and must have room for it.
type SubmitRequested struct {
	Done chan<- Result
}

// Reset forgets the loaded media and restores the default edit state
type Reset struct{}

type stateQuery struct {
	reply chan State
}

func (e MetadataLoaded) apply(c *Controller) error {
	d, err := DurationOf(e.Duration)
	if err != nil {
		return err
	}
	if c.duration.Known() {
		if c.duration == d && c.native == e.Native {
			return nil
		}
		return fmt.Errorf("%w: have %s %s, got %s %s", ErrMetadataConflict, c.duration, c.native, d, e.Native)
	}

	c.duration = d
	c.native = e.Native
	c.logger.Info().
		Str("duration", d.String()).
		Str("native", e.Native.String()).
		Msg("media metadata loaded")
	return nil
}

func (e SelectionChanged) apply(c *Controller) error {
	if err := c.trim.SetSelection(e.Range); err != nil {
		return err
	}
	if !c.playing || c.cfg.Media == nil {
		return nil
	}
	start, err := ToTime(e.Range.Low, c.duration)
	if err != nil {
		return nil
	}
	c.cfg.Media.Seek(start)
	return nil
}

func (e PlaybackTick) apply(c *Controller) error {
	c.playing = true
	pos, ok := c.trim.Clamp(e.Time, c.duration)
	if ok && c.cfg.Media != nil {
		c.logger.Debug().Float64("at", e.Time).Float64("seek", pos).Msg("playback clamped to trim window")
		c.cfg.Media.Seek(pos)
	}
	return nil
}

func (e DragStopped) apply(c *Controller) error {
	return c.commit(OverlayGeometry{X: e.X, Y: e.Y, Size: c.geometry.Size})
}

func (e ResizeStopped) apply(c *Controller) error {
	next, err := Resize(c.baseline, e.Delta, e.Handle)
	if err != nil {
		c.logger.Warn().Err(err).Float64("delta", e.Delta).Msg("resize ignored")
		return err
	}
	return c.commit(next)
}

func (e SubmitRequested) apply(c *Controller) error {
	return c.submit(e.Done)
}

func (Reset) apply(c *Controller) error {
	if c.busy.Load() {
		return ErrJobInFlight
	}
	c.reset()
	c.logger.Info().Msg("editor reset")
	return nil
}

func (q stateQuery) apply(c *Controller) error {
	q.reply <- c.state()
	return nil
}

func validGeometry(g OverlayGeometry) bool {
	for _, v := range []float64{g.X, g.Y, g.Size} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return g.Size > 0
}
