package editor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ErrStopped is returned by Dispatch once the controller loop has exited
var ErrStopped = errors.New("editor controller stopped")

// Defaults for Config
const (
	DefaultOutputName  = "result.mp4"
	DefaultOverlaySize = 128
	DefaultQueueSize   = 16
)

// Config wires the controller to its collaborators
type Config struct {
	Engine     Engine
	Layout     Layout
	Media      MediaSource
	Downloader Downloader

	Inputs Inputs

	// ReferenceOverlaySize is the overlay asset's native side in pixels
	ReferenceOverlaySize float64
	OutputName           string
	InitialGeometry      OverlayGeometry
	QueueSize            int
}

// Result is the outcome of one submitted job
type Result struct {
	Job     JobDescription
	Size    int
	Elapsed time.Duration
	Err     error
}

// State is a read-only snapshot of the editor
type State struct {
	Selection SelectionRange  `json:"selection"`
	Window    *TimeWindow     `json:"window,omitempty"`
	Duration  *float64        `json:"duration,omitempty"`
	Native    Extent          `json:"native"`
	Geometry  OverlayGeometry `json:"geometry"`
	Playing   bool            `json:"playing"`
	Busy      bool            `json:"busy"`
}

type envelope struct {
	event Event
	reply chan error
}

// Controller owns the live edit state and processes events one at a time
type Controller struct {
	logger zerolog.Logger
	cfg    Config

	events  chan envelope
	stopped chan struct{}
	runCtx  context.Context

	jobs *semaphore.Weighted
	busy atomic.Bool
	wg   sync.WaitGroup

	// owned by the Run goroutine
	duration MediaDuration
	native   Extent
	trim     *TrimWindow
	geometry OverlayGeometry
	baseline OverlayGeometry
	playing  bool
}

// New creates a controller; call Run to start processing events
func New(logger zerolog.Logger, cfg Config) (*Controller, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("transcoding engine is required")
	}
	if cfg.Layout == nil {
		return nil, fmt.Errorf("layout is required")
	}
	if cfg.ReferenceOverlaySize <= 0 {
		return nil, fmt.Errorf("reference overlay size must be positive, got %v", cfg.ReferenceOverlaySize)
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}
	if cfg.InitialGeometry == (OverlayGeometry{}) {
		cfg.InitialGeometry = OverlayGeometry{Size: DefaultOverlaySize}
	}
	if !validGeometry(cfg.InitialGeometry) {
		return nil, fmt.Errorf("%w: initial geometry %+v", ErrInvalidGeometry, cfg.InitialGeometry)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	c := &Controller{
		logger:  logger.With().Str("component", "editor").Logger(),
		cfg:     cfg,
		events:  make(chan envelope, cfg.QueueSize),
		stopped: make(chan struct{}),
		jobs:    semaphore.NewWeighted(1),
	}
	c.reset()
	return c, nil
}

// Run processes events until ctx is done, then waits for an in-flight job
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	defer close(c.stopped)
	defer c.wg.Wait()

	c.logger.Debug().Msg("editor loop started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Msg("editor loop stopped")
			return ctx.Err()
		case env := <-c.events:
			env.reply <- env.event.apply(c)
		}
	}
}

// Dispatch queues an event and waits for its handler to finish
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	env := envelope{event: ev, reply: make(chan error, 1)}

	select {
	case c.events <- env:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-env.reply:
		return err
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit requests a job and returns the channel its Result arrives on
func (c *Controller) Submit(ctx context.Context) (<-chan Result, error) {
	done := make(chan Result, 1)
	if err := c.Dispatch(ctx, SubmitRequested{Done: done}); err != nil {
		return nil, err
	}
	return done, nil
}

// Snapshot returns the current state, read through the event loop
func (c *Controller) Snapshot(ctx context.Context) (State, error) {
	q := stateQuery{reply: make(chan State, 1)}
	if err := c.Dispatch(ctx, q); err != nil {
		return State{}, err
	}
	return <-q.reply, nil
}

// Busy reports whether a job is in flight
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

func (c *Controller) reset() {
	c.duration = MediaDuration{}
	c.native = Extent{}
	c.trim = NewTrimWindow()
	c.geometry = c.cfg.InitialGeometry
	c.baseline = c.cfg.InitialGeometry
	c.playing = false
}

// commit stores g as the live geometry and as the baseline the next resize
// anchors to. Offsets are kept non-negative.
func (c *Controller) commit(g OverlayGeometry) error {
	if !validGeometry(g) {
		return fmt.Errorf("%w: %+v", ErrInvalidGeometry, g)
	}
	g.X = math.Max(0, g.X)
	g.Y = math.Max(0, g.Y)

	c.geometry = g
	c.baseline = g
	c.logger.Debug().
		Float64("x", g.X).
		Float64("y", g.Y).
		Float64("size", g.Size).
		Msg("overlay geometry committed")
	return nil
}

func (c *Controller) state() State {
	s := State{
		Selection: c.trim.Selection(),
		Native:    c.native,
		Geometry:  c.geometry,
		Playing:   c.playing,
		Busy:      c.busy.Load(),
	}
	if secs, ok := c.duration.Seconds(); ok {
		s.Duration = &secs
		if w, err := c.trim.Window(c.duration); err == nil {
			s.Window = &w
		}
	}
	return s
}

// submit builds the job from the latest state and runs it off the event loop.
// Editor state is never modified by a submission.
func (c *Controller) submit(done chan<- Result) error {
	if !c.jobs.TryAcquire(1) {
		return ErrJobInFlight
	}

	job, err := c.buildJob()
	if err != nil {
		c.jobs.Release(1)
		return err
	}

	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	c.busy.Store(true)
	c.wg.Add(1)
	go c.execute(ctx, job, done)
	return nil
}

func (c *Controller) buildJob() (JobDescription, error) {
	display := c.cfg.Layout.DisplayExtent()
	scale, err := ComputeScale(c.native, display)
	if err != nil {
		return JobDescription{}, err
	}
	return Build(c.trim.Selection(), c.duration, c.geometry, scale, c.cfg.ReferenceOverlaySize)
}

func (c *Controller) execute(ctx context.Context, job JobDescription, done chan<- Result) {
	defer c.wg.Done()

	logger := c.logger.With().Str("job", job.ID).Logger()
	logger.Info().
		Float64("trim_start", job.TrimStart).
		Float64("trim_length", job.TrimLength).
		Int("overlay_x", job.OverlayX).
		Int("overlay_y", job.OverlayY).
		Float64("overlay_scale", job.OverlayScale).
		Msg("transcoding job started")

	start := time.Now()
	blob, err := c.cfg.Engine.Transcode(ctx, job, c.cfg.Inputs)
	res := Result{Job: job, Size: len(blob), Elapsed: time.Since(start)}

	if err != nil {
		res.Err = &JobError{JobID: job.ID, Reason: err.Error(), Err: err}
		logger.Error().Err(err).Dur("elapsed", res.Elapsed).Msg("transcoding job failed")
	} else {
		logger.Info().
			Str("size", humanize.Bytes(uint64(len(blob)))).
			Dur("elapsed", res.Elapsed).
			Msg("transcoding job finished")
		if c.cfg.Downloader != nil {
			if derr := c.cfg.Downloader.Download(ctx, c.cfg.OutputName, blob); derr != nil {
				logger.Warn().Err(derr).Str("name", c.cfg.OutputName).Msg("download failed")
			}
		}
	}

	c.busy.Store(false)
	c.jobs.Release(1)

	if done != nil {
		done <- res
	}
}
