package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/trimlay/internal/config"
	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/logging"
	"github.com/kikiluvv/trimlay/internal/overlays"
	"github.com/kikiluvv/trimlay/internal/pipeline"
	"github.com/kikiluvv/trimlay/pkg/util"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trimlay",
	Short: "trimlay - trim a video and stamp an overlay on it",
	Long:  "Trim a clip to a window and composite a draggable, resizable image overlay with ffmpeg.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose, jsonLogs)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./trimlay.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON log lines")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)

	configCmd.AddCommand(configShowCmd)
}

func openPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	return pipeline.New(log.Logger, config.FromContext(cmd.Context()))
}

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Print the metadata the editor would load",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := openPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		info, err := pipe.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("duration  %s\n", util.FormatDuration(info.Duration))
		fmt.Printf("size      %dx%d\n", info.Width, info.Height)
		fmt.Printf("fps       %.3f\n", info.FPS)
		fmt.Printf("video     %s\n", info.VideoCodec)
		if info.HasAudio {
			fmt.Printf("audio     %s\n", info.AudioCodec)
		}
		if info.Bitrate > 0 {
			fmt.Printf("bitrate   %s/s\n", humanize.Bytes(uint64(info.Bitrate/8)))
		}
		return nil
	},
}

var renderFlags struct {
	overlay   string
	from      string
	to        string
	x, y      float64
	size      float64
	display   string
	resizes   []string
	outputDir string
	output    string
}

var renderCmd = &cobra.Command{
	Use:   "render [input video]",
	Short: "Trim a video and composite the overlay without a UI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := renderOptions(cmd)
		if err != nil {
			return err
		}

		pipe, err := openPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		res, err := pipe.Render(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		logger := logging.WithComponent("render")
		logger.Info().
			Str("job", res.Job.ID).
			Str("output", res.OutputPath).
			Str("size", humanize.Bytes(uint64(res.Bytes))).
			Dur("elapsed", res.Elapsed).
			Msg("render complete")
		return nil
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.overlay, "overlay", "", "overlay name or image path (default: configured overlay)")
	f.StringVar(&renderFlags.from, "from", "", "trim start, seconds or [hh:]mm:ss")
	f.StringVar(&renderFlags.to, "to", "", "trim end, seconds or [hh:]mm:ss (default: end of video)")
	f.Float64Var(&renderFlags.x, "x", 0, "overlay left edge in display pixels")
	f.Float64Var(&renderFlags.y, "y", 0, "overlay top edge in display pixels")
	f.Float64Var(&renderFlags.size, "size", 0, "overlay side in display pixels (default: configured initial size)")
	f.StringVar(&renderFlags.display, "display", "", "preview size the geometry is expressed in, WxH")
	f.StringArrayVar(&renderFlags.resizes, "resize", nil, "resize gesture handle:delta, repeatable")
	f.StringVarP(&renderFlags.outputDir, "output-dir", "o", "", "directory for the result")
	f.StringVar(&renderFlags.output, "output", "", "output file name (default: result.mp4)")
}

func renderOptions(cmd *cobra.Command) (pipeline.RenderOptions, error) {
	opts := pipeline.RenderOptions{
		Overlay:    renderFlags.overlay,
		OutputDir:  renderFlags.outputDir,
		OutputName: renderFlags.output,
	}

	var err error
	if renderFlags.from != "" {
		if opts.Start, err = util.ParseTimestamp(renderFlags.from); err != nil {
			return opts, fmt.Errorf("--from: %w", err)
		}
	}
	if renderFlags.to != "" {
		if opts.End, err = util.ParseTimestamp(renderFlags.to); err != nil {
			return opts, fmt.Errorf("--to: %w", err)
		}
	}
	if renderFlags.display != "" {
		if opts.Display, err = parseExtent(renderFlags.display); err != nil {
			return opts, fmt.Errorf("--display: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("x") || flags.Changed("y") || flags.Changed("size") {
		opts.Position = &editor.OverlayGeometry{X: renderFlags.x, Y: renderFlags.y, Size: renderFlags.size}
	}

	for _, raw := range renderFlags.resizes {
		step, err := parseResize(raw)
		if err != nil {
			return opts, fmt.Errorf("--resize: %w", err)
		}
		opts.Resizes = append(opts.Resizes, step)
	}
	return opts, nil
}

var previewFlags struct {
	width int
	out   string
}

var previewCmd = &cobra.Command{
	Use:   "preview [overlay]",
	Short: "Write a resized PNG preview of an overlay",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}

		cfg := config.FromContext(cmd.Context())
		path, err := overlays.FromMap(cfg.Overlays.DefaultOverlay, cfg.Overlays.Overlays).Resolve(name)
		if err != nil {
			return err
		}

		asset, err := overlays.LoadAsset(path)
		if err != nil {
			return err
		}

		data, err := asset.Preview(previewFlags.width)
		if err != nil {
			return err
		}
		if err := os.WriteFile(previewFlags.out, data, 0644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}

		logger := logging.WithComponent("preview")
		logger.Info().
			Str("overlay", asset.Path).
			Int("native_width", asset.Width()).
			Int("native_height", asset.Height()).
			Str("preview", previewFlags.out).
			Msg("preview written")
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVar(&previewFlags.width, "width", 128, "preview width in pixels")
	previewCmd.Flags().StringVar(&previewFlags.out, "out", "preview.png", "preview file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var listCmd = &cobra.Command{
	Use:   "list overlays",
	Short: "List configured overlays",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] != "overlays" {
			return fmt.Errorf("unknown resource %q", args[0])
		}

		cfg := config.FromContext(cmd.Context())
		registry := overlays.FromMap(cfg.Overlays.DefaultOverlay, cfg.Overlays.Overlays)

		names := registry.List()
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			path, _ := registry.Get(name)
			marker := ""
			if name == cfg.Overlays.DefaultOverlay {
				marker = "*"
			}
			rows = append(rows, []string{marker, name, path})
		}
		fmt.Println(renderTable([]string{"", "Name", "Path"}, rows, nil))
		return nil
	},
}
