package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/trimlay/internal/config"
	"github.com/kikiluvv/trimlay/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent transcoding jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if !cfg.History.Enabled {
			return fmt.Errorf("job history is disabled")
		}

		store, err := history.Open(cfg.History.Path, log.Logger)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no jobs recorded")
			return nil
		}

		fmt.Println(renderTable(
			[]string{"Job", "Status", "Trim", "Overlay", "Output", "Took", "Started"},
			historyRows(entries),
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
		))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of jobs to show")
}

func historyRows(entries []*history.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		id := e.Job.ID
		if len(id) > 8 {
			id = id[:8]
		}

		output := "-"
		if e.Status == history.StatusSucceeded {
			output = humanize.Bytes(uint64(e.OutputBytes))
		}
		took := "-"
		if e.FinishedAt != nil {
			took = e.Elapsed().Round(10 * time.Millisecond).String()
		}

		rows = append(rows, []string{
			id,
			string(e.Status),
			fmt.Sprintf("%.2fs-%.2fs", e.Job.TrimStart, e.Job.TrimEnd()),
			fmt.Sprintf("(%d,%d) x%.2f", e.Job.OverlayX, e.Job.OverlayY, e.Job.OverlayScale),
			output,
			took,
			humanize.Time(e.CreatedAt),
		})
	}
	return rows
}
