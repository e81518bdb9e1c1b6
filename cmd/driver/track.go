package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"busdriver/internal/tracking"
	"busdriver/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	trackSource string
	trackFile   string
	trackCount  int
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record locations for the active trip until interrupted",
	Long: `Record locations for the active trip.

--source sim walks a simulated bus along a straight line (one fix per second).
--source file reads gpsd TPV JSON lines from --file, or stdin when --file is "-".
Tracking stops on Ctrl-C, at the end of the input, or when the trip is ended.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			active, err := a.tripsSvc.ActiveTrip(ctx)
			if err != nil {
				return err
			}
			if active == nil {
				return usecase.ErrNoActiveTrip
			}

			src, closeSrc, err := newSource(cmd, a.log)
			if err != nil {
				return err
			}
			defer closeSrc()

			fmt.Fprintf(cmd.OutOrStdout(), "Tracking trip %s on %s (Ctrl-C to stop)\n", active.ID, active.RouteID)

			sum, err := a.tracker.Run(ctx, active.ID, src)
			printSummary(cmd.OutOrStdout(), sum)
			if errors.Is(err, tracking.ErrTrackingStopped) {
				fmt.Fprintln(cmd.OutOrStdout(), "Trip was ended, tracking stopped.")
				return nil
			}
			return err
		})
	},
}

func init() {
	trackCmd.Flags().StringVar(&trackSource, "source", "sim", "fix source: sim or file")
	trackCmd.Flags().StringVar(&trackFile, "file", "-", "gpsd JSON lines for --source file")
	trackCmd.Flags().IntVar(&trackCount, "count", 0, "stop the simulation after this many fixes (0 = unlimited)")
}

// newSource builds the fix source selected by the flags
func newSource(cmd *cobra.Command, log *zap.SugaredLogger) (tracking.Source, func(), error) {
	switch trackSource {
	case "sim":
		sim := tracking.NewSimulatedSource()
		sim.Count = trackCount
		return sim, func() {}, nil

	case "file":
		if trackFile == "-" {
			return &tracking.ReaderSource{R: cmd.InOrStdin(), Log: log}, func() {}, nil
		}
		f, err := os.Open(trackFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open fixes: %w", err)
		}
		return &tracking.ReaderSource{R: f, Log: log}, func() { f.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q (want sim or file)", trackSource)
}

func printSummary(w io.Writer, sum tracking.Summary) {
	printField(w, "Received", fmt.Sprint(sum.Received))
	printField(w, "Stored", fmt.Sprint(sum.Stored))
	printField(w, "Filtered", fmt.Sprint(sum.Filter.SkippedByAccuracy+sum.Filter.SkippedByDelta))
	if sum.Dropped > 0 {
		printField(w, "Dropped", errorStyle.Render(fmt.Sprint(sum.Dropped)))
	}
}
