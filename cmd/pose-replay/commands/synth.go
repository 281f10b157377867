package commands

import (
	"os"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/replay"
	"github.com/spf13/cobra"
)

// synthCmd represents the synth command
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write a synthetic frame file from a catalog pose",
	Long: `Jitters a catalog reference pose into a frame file. Each frame gets a
fresh frame id. Output goes to stdout unless --out is set.

Example:
  go run ./cmd/pose-replay synth --reference virabhadrasana2.png --count 90 --jitter 0.02 --out frames.yaml`,
	RunE: runSynth,
}

var (
	synthCount    int
	synthJitter   float64
	synthDropRate float64
	synthSeed     int64
	synthOut      string
)

func init() {
	rootCmd.AddCommand(synthCmd)
	synthCmd.Flags().IntVar(&synthCount, "count", 30, "number of frames")
	synthCmd.Flags().Float64Var(&synthJitter, "jitter", 0.02, "noise as a fraction of the pose size")
	synthCmd.Flags().Float64Var(&synthDropRate, "drop-rate", 0, "chance a keypoint is reported with zero confidence")
	synthCmd.Flags().Int64Var(&synthSeed, "seed", 1, "random seed")
	synthCmd.Flags().StringVar(&synthOut, "out", "", "output file (default stdout)")
}

func runSynth(cmd *cobra.Command, _ []string) error {
	refs, err := loadCatalog()
	if err != nil {
		return err
	}
	refID := pickReference(nil, catalog.DefaultMove)
	ref, err := refs.Lookup(cmd.Context(), refID)
	if err != nil {
		return err
	}

	rec := &replay.Recording{
		Reference: refID,
		FPS:       fps,
		Frames: replay.Synthesize(ref, replay.SynthOptions{
			Count:    synthCount,
			Jitter:   synthJitter,
			DropRate: synthDropRate,
			Seed:     synthSeed,
		}),
	}

	out := cmd.OutOrStdout()
	if synthOut != "" {
		f, err := os.Create(synthOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return replay.WriteRecording(out, rec)
}
