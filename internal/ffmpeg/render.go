package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/trimlay/pkg/util"
)

// CompositeOptions describes one trim-and-overlay render
type CompositeOptions struct {
	Input   string
	Overlay string
	Output  string

	// Start and Length select the source window
	Start  time.Duration
	Length time.Duration

	// X, Y and Scale place the overlay in source pixels
	X     int
	Y     int
	Scale float64

	Encode       EncodeOptions
	ProgressFunc ProgressFunc
}

// Composite trims the input to the requested window and burns the scaled
// overlay in at X,Y
func (e *Executor) Composite(ctx context.Context, opts CompositeOptions) error {
	if err := validateCompositeOptions(opts); err != nil {
		return fmt.Errorf("invalid composite options: %w", err)
	}

	e.logger.Info().
		Str("input", opts.Input).
		Str("overlay", opts.Overlay).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("length", opts.Length).
		Int("x", opts.X).
		Int("y", opts.Y).
		Float64("scale", opts.Scale).
		Msg("compositing")

	runOpts := RunOptions{
		Args:            compositeArgs(opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("composite output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("composite failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("composite completed")
	return nil
}

// compositeArgs seeks before the first input so -t bounds the source window
func compositeArgs(opts CompositeOptions) []string {
	enc := opts.Encode.withDefaults()

	return []string{
		"-ss", util.FormatDuration(opts.Start),
		"-t", util.FormatDuration(opts.Length),
		"-i", opts.Input,
		"-i", opts.Overlay,
		"-filter_complex", OverlayGraph(opts.X, opts.Y, opts.Scale),
		"-c:v", enc.VideoCodec,
		"-crf", fmt.Sprintf("%d", enc.CRF),
		"-preset", enc.Preset,
		"-c:a", enc.AudioCodec,
		"-movflags", "+faststart",
		opts.Output,
	}
}

func validateCompositeOptions(opts CompositeOptions) error {
	if opts.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Overlay == "" {
		return fmt.Errorf("overlay path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Start < 0 {
		return fmt.Errorf("start cannot be negative")
	}
	if opts.Length <= 0 {
		return fmt.Errorf("length must be positive")
	}
	if opts.Scale <= 0 {
		return fmt.Errorf("overlay scale must be positive")
	}
	if opts.Encode.CRF < 0 || opts.Encode.CRF > 51 {
		return fmt.Errorf("CRF must be between 0 and 51")
	}
	return nil
}
