package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/pkg/util"
)

// ErrWorkDirBusy is returned by Open when another process owns the work dir
var ErrWorkDirBusy = errors.New("work directory is locked by another process")

// Scratch file names inside a job directory
const (
	inputVideoName   = "video.mp4"
	inputOverlayName = "image.png"
	outputName       = "output.mp4"
	lockName         = ".trimlay.lock"
)

// Compositor renders one trim-and-overlay job
type Compositor interface {
	Composite(ctx context.Context, opts CompositeOptions) error
}

// EngineOptions configures the transcoding engine
type EngineOptions struct {
	WorkDir   string
	Encode    EncodeOptions
	KeepFiles bool
}

// Engine runs editor jobs through ffmpeg using a private scratch directory
// per job
type Engine struct {
	logger zerolog.Logger
	comp   Compositor
	opts   EngineOptions
	lock   *flock.Flock
}

// NewEngine creates an engine rooted at opts.WorkDir. Call Open before use.
func NewEngine(logger zerolog.Logger, comp Compositor, opts EngineOptions) (*Engine, error) {
	if comp == nil {
		return nil, fmt.Errorf("compositor is required")
	}
	if opts.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}

	return &Engine{
		logger: logger.With().Str("component", "engine").Logger(),
		comp:   comp,
		opts:   opts,
		lock:   flock.New(filepath.Join(opts.WorkDir, lockName)),
	}, nil
}

// Open creates the work directory and takes its lock
func (e *Engine) Open() error {
	if err := util.EnsureDir(e.opts.WorkDir); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	ok, err := e.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkDirBusy, e.opts.WorkDir)
	}

	e.logger.Debug().Str("dir", e.opts.WorkDir).Msg("work dir locked")
	return nil
}

// Close releases the work directory lock
func (e *Engine) Close() error {
	if err := e.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Transcode implements editor.Engine
func (e *Engine) Transcode(ctx context.Context, job editor.JobDescription, in editor.Inputs) ([]byte, error) {
	if !e.lock.Locked() {
		return nil, fmt.Errorf("engine is not open")
	}
	if len(in.Video) == 0 {
		return nil, fmt.Errorf("video input is empty")
	}
	if len(in.Overlay) == 0 {
		return nil, fmt.Errorf("overlay input is empty")
	}

	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	dir := filepath.Join(e.opts.WorkDir, id)
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	if !e.opts.KeepFiles {
		defer os.RemoveAll(dir)
	}

	videoPath := filepath.Join(dir, inputVideoName)
	overlayPath := filepath.Join(dir, inputOverlayName)
	outPath := filepath.Join(dir, outputName)

	if err := os.WriteFile(videoPath, in.Video, 0o644); err != nil {
		return nil, fmt.Errorf("write video: %w", err)
	}
	if err := os.WriteFile(overlayPath, in.Overlay, 0o644); err != nil {
		return nil, fmt.Errorf("write overlay: %w", err)
	}

	log := e.logger.With().Str("job", id).Logger()

	err := e.comp.Composite(ctx, CompositeOptions{
		Input:   videoPath,
		Overlay: overlayPath,
		Output:  outPath,
		Start:   seconds(job.TrimStart),
		Length:  seconds(job.TrimLength),
		X:       job.OverlayX,
		Y:       job.OverlayY,
		Scale:   job.OverlayScale,
		Encode:  e.opts.Encode,
		ProgressFunc: func(p *Progress) {
			log.Debug().
				Int("frame", p.Frame).
				Dur("out", p.Elapsed()).
				Str("speed", p.Speed).
				Msg("progress")
		},
	})
	if err != nil {
		return nil, err
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced an empty output")
	}

	return out, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
