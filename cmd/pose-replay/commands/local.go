package commands

import (
	"github.com/okian/poseparty/internal/config"
	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/replay"
	"github.com/spf13/cobra"
)

// localCmd represents the local command
var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Score a frame file with an in-process engine",
	Long: `Scores every frame of a recording in order with an in-process engine,
printing similarity, tier and the running percentage per frame.

Scoring settings come from the same POSE_ environment and POSE_CONFIG file
as the service.

Example:
  go run ./cmd/pose-replay local --frames frames.yaml --reference vrksasana.png`,
	RunE: runLocal,
}

var localFrames string

func init() {
	rootCmd.AddCommand(localCmd)
	localCmd.Flags().StringVar(&localFrames, "frames", "", "frame file (YAML or JSON)")
	_ = localCmd.MarkFlagRequired("frames")
}

func runLocal(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	rec, err := replay.LoadRecording(localFrames)
	if err != nil {
		return err
	}
	refs, err := loadCatalog()
	if err != nil {
		return err
	}
	refID := pickReference(rec, cfg.DefaultReference)
	ref, err := refs.Lookup(ctx, refID)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg.EngineConfig())
	if err != nil {
		return err
	}
	if err := eng.SelectReference(refID, ref); err != nil {
		return err
	}

	sum, err := replay.RunLocal(ctx, eng, rec.Frames, replay.Pacer(pickFPS(rec)), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	replay.WriteSummary(cmd.OutOrStdout(), sum)
	return nil
}
