package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimlay/internal/config"
	"github.com/kikiluvv/trimlay/internal/download"
	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/ffmpeg"
	"github.com/kikiluvv/trimlay/internal/history"
	"github.com/kikiluvv/trimlay/internal/overlays"
)

type prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Pipeline wires ffmpeg, job history and overlay assets into editor sessions
type Pipeline struct {
	logger   zerolog.Logger
	config   *config.Config
	prober   prober
	engine   editor.Engine
	history  *history.Store
	overlays *overlays.Registry
	closers  []func() error
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, appCfg *config.Config) (*Pipeline, error) {
	p := &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		config:   appCfg,
		overlays: overlays.FromMap(appCfg.Overlays.DefaultOverlay, appCfg.Overlays.Overlays),
	}

	ffmpegExec, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  appCfg.FFmpeg.BinaryPath,
		FFprobePath: appCfg.FFmpeg.ProbePath,
		Threads:     appCfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	p.prober = ffmpegExec

	engine, err := ffmpeg.NewEngine(logger, ffmpegExec, ffmpeg.EngineOptions{
		WorkDir: appCfg.WorkDir,
		Encode: ffmpeg.EncodeOptions{
			Preset: appCfg.FFmpeg.Preset,
			CRF:    appCfg.FFmpeg.CRF,
		},
		KeepFiles: appCfg.FFmpeg.KeepScratch,
	})
	if err != nil {
		return nil, err
	}
	if err := engine.Open(); err != nil {
		return nil, err
	}
	p.closers = append(p.closers, engine.Close)
	p.engine = engine

	if appCfg.History.Enabled {
		store, err := history.Open(appCfg.History.Path, logger)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		p.closers = append(p.closers, store.Close)
		p.history = store
		p.engine = history.Record(engine, store, logger)
	}

	return p, nil
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// History returns the job history store, nil when disabled
func (p *Pipeline) History() *history.Store {
	return p.history
}

// Overlays returns the configured overlay registry
func (p *Pipeline) Overlays() *overlays.Registry {
	return p.overlays
}

// Probe reads the source metadata
func (p *Pipeline) Probe(ctx context.Context, input string) (*ffmpeg.VideoInfo, error) {
	if input == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	info, err := p.prober.ProbeVideo(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}
	return info, nil
}

// LoadOverlay resolves a name or path and decodes the asset
func (p *Pipeline) LoadOverlay(name string) (*overlays.Asset, error) {
	path, err := p.overlays.Resolve(name)
	if err != nil {
		return nil, err
	}
	return overlays.LoadAsset(path)
}

// NewController builds an editor controller over the input video. The caller
// runs it and feeds it events.
func (p *Pipeline) NewController(opts ControllerOptions) (*editor.Controller, *overlays.Asset, error) {
	if opts.Input == "" {
		return nil, nil, fmt.Errorf("input path cannot be empty")
	}

	video, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}

	asset, err := p.LoadOverlay(opts.Overlay)
	if err != nil {
		return nil, nil, fmt.Errorf("load overlay: %w", err)
	}

	ref := asset.ReferenceSize()
	if ref <= 0 {
		ref = float64(p.config.Overlays.ReferenceSize)
	}

	downloader := opts.Downloader
	if downloader == nil {
		outputDir := opts.OutputDir
		if outputDir == "" {
			outputDir = p.config.OutputDir
		}
		downloader = download.NewFileDownloader(p.logger, outputDir)
	}

	ctrl, err := editor.New(p.logger, editor.Config{
		Engine:               p.engine,
		Layout:               opts.Layout,
		Media:                opts.Media,
		Downloader:           downloader,
		Inputs:               editor.Inputs{Video: video, Overlay: asset.Data},
		ReferenceOverlaySize: ref,
		OutputName:           opts.OutputName,
		InitialGeometry:      editor.OverlayGeometry{Size: p.config.Overlays.InitialSize},
	})
	if err != nil {
		return nil, nil, err
	}

	p.logger.Debug().
		Str("input", opts.Input).
		Str("overlay", asset.Path).
		Float64("reference_size", ref).
		Msg("editor session ready")

	return ctrl, asset, nil
}

// fixedLayout is a display that never changes size
type fixedLayout editor.Extent

func (l fixedLayout) DisplayExtent() editor.Extent {
	return editor.Extent(l)
}

// Render performs a complete edit without a UI: probe, load, place the
// overlay, submit and wait for the output
func (p *Pipeline) Render(ctx context.Context, input string, opts RenderOptions) (*RenderResult, error) {
	p.logger.Info().
		Str("input", input).
		Str("overlay", opts.Overlay).
		Msg("starting render")

	info, err := p.Probe(ctx, input)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Msg("video metadata extracted")

	native := editor.Extent{Width: float64(info.Width), Height: float64(info.Height)}
	display := p.displayFor(opts.Display, native)

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = p.config.OutputDir
	}
	outputName := opts.OutputName
	if outputName == "" {
		outputName = editor.DefaultOutputName
	}

	downloader := download.NewFileDownloader(p.logger, outputDir)
	ctrl, _, err := p.NewController(ControllerOptions{
		Input:      input,
		Overlay:    opts.Overlay,
		Layout:     fixedLayout(display),
		OutputName: outputName,
		Downloader: downloader,
	})
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ctrl.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	if err := p.applyEdits(runCtx, ctrl, info, opts); err != nil {
		return nil, err
	}

	results, err := ctrl.Submit(runCtx)
	if err != nil {
		return nil, err
	}

	var res editor.Result
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// download failures are only logged by the controller
	outputPath := downloader.LastPath()
	if outputPath == "" {
		return nil, fmt.Errorf("job %s finished but %s was not written", res.Job.ID, outputName)
	}

	return &RenderResult{
		Job:        res.Job,
		OutputPath: outputPath,
		Bytes:      res.Size,
		Elapsed:    res.Elapsed,
	}, nil
}

func (p *Pipeline) applyEdits(ctx context.Context, ctrl *editor.Controller, info *ffmpeg.VideoInfo, opts RenderOptions) error {
	seconds := info.Duration.Seconds()
	err := ctrl.Dispatch(ctx, editor.MetadataLoaded{
		Duration: seconds,
		Native:   editor.Extent{Width: float64(info.Width), Height: float64(info.Height)},
	})
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	sel, err := selectionFor(opts, seconds)
	if err != nil {
		return err
	}
	if err := ctrl.Dispatch(ctx, editor.SelectionChanged{Range: sel}); err != nil {
		return fmt.Errorf("select trim window: %w", err)
	}

	if opts.Position != nil {
		if err := ctrl.Dispatch(ctx, editor.DragStopped{X: opts.Position.X, Y: opts.Position.Y}); err != nil {
			return fmt.Errorf("place overlay: %w", err)
		}
		if opts.Position.Size > 0 {
			state, err := ctrl.Snapshot(ctx)
			if err != nil {
				return err
			}
			delta := opts.Position.Size - state.Geometry.Size
			if delta != 0 {
				opts.Resizes = append([]ResizeStep{{Handle: editor.HandleBottomRight, Delta: delta}}, opts.Resizes...)
			}
		}
	}

	for _, step := range opts.Resizes {
		if err := ctrl.Dispatch(ctx, editor.ResizeStopped{Delta: step.Delta, Handle: step.Handle}); err != nil {
			return fmt.Errorf("resize overlay: %w", err)
		}
	}
	return nil
}

// selectionFor converts a time window into slider units
func selectionFor(opts RenderOptions, total float64) (editor.SelectionRange, error) {
	d, err := editor.DurationOf(total)
	if err != nil {
		return editor.SelectionRange{}, err
	}

	low, err := editor.ToSliderValue(opts.Start.Seconds(), d)
	if err != nil {
		return editor.SelectionRange{}, err
	}
	high := editor.SliderMax
	if opts.End > 0 {
		if high, err = editor.ToSliderValue(opts.End.Seconds(), d); err != nil {
			return editor.SelectionRange{}, err
		}
	}

	r := editor.SelectionRange{Low: low, High: high}
	if err := r.Validate(); err != nil {
		return editor.SelectionRange{}, err
	}
	return r, nil
}

func (p *Pipeline) displayFor(requested, native editor.Extent) editor.Extent {
	if requested.Known() {
		return requested
	}
	configured := editor.Extent{Width: p.config.Display.Width, Height: p.config.Display.Height}
	if configured.Known() {
		return configured
	}
	return native
}
