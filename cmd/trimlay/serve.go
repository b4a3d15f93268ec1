package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/trimlay/internal/api"
	"github.com/kikiluvv/trimlay/internal/config"
	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/logging"
	"github.com/kikiluvv/trimlay/internal/pipeline"
)

var serveFlags struct {
	addr      string
	overlay   string
	outputDir string
	noProbe   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve [input video]",
	Short: "Run an editing session over HTTP",
	Long: "Serve one editing session for the input video. A player UI posts layout, " +
		"selection, drag and resize events and submits jobs; results land in the output directory.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		addr := serveFlags.addr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pipe, err := openPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		player := api.NewPlayer(editor.Extent{Width: cfg.Display.Width, Height: cfg.Display.Height})
		ctrl, asset, err := pipe.NewController(pipeline.ControllerOptions{
			Input:     args[0],
			Overlay:   serveFlags.overlay,
			Layout:    player,
			Media:     player,
			OutputDir: serveFlags.outputDir,
		})
		if err != nil {
			return err
		}

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			ctrl.Run(ctx)
		}()
		defer func() {
			stop()
			<-stopped
		}()

		if !serveFlags.noProbe {
			if err := loadMetadata(ctx, pipe, ctrl, args[0]); err != nil {
				return err
			}
		}

		server := api.NewServer(api.ServerConfig{
			Addr:       addr,
			Controller: ctrl,
			Player:     player,
			History:    pipe.History(),
			Logger:     log.Logger,
		})

		logger := logging.WithComponent("serve")
		logger.Info().
			Str("input", args[0]).
			Str("overlay", asset.Path).
			Str("addr", addr).
			Msg("editing session ready")

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err = <-errCh:
			stop()
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err = server.Shutdown(shutdownCtx)
		}

		// the controller finishes any in-flight job before returning
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (default: configured server address)")
	serveCmd.Flags().StringVar(&serveFlags.overlay, "overlay", "", "overlay name or image path")
	serveCmd.Flags().StringVarP(&serveFlags.outputDir, "output-dir", "o", "", "directory for results")
	serveCmd.Flags().BoolVar(&serveFlags.noProbe, "no-probe", false, "wait for the client to post metadata")
}

func loadMetadata(ctx context.Context, pipe *pipeline.Pipeline, ctrl *editor.Controller, input string) error {
	info, err := pipe.Probe(ctx, input)
	if err != nil {
		return err
	}

	err = ctrl.Dispatch(ctx, editor.MetadataLoaded{
		Duration: info.Duration.Seconds(),
		Native:   editor.Extent{Width: float64(info.Width), Height: float64(info.Height)},
	})
	if err != nil && !errors.Is(err, editor.ErrMetadataConflict) {
		return fmt.Errorf("load metadata: %w", err)
	}
	return nil
}
