package commands

import (
	"context"
	"time"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/replay"
	"github.com/okian/poseparty/pkg/logger"
	"github.com/spf13/cobra"
)

// remoteCmd represents the remote command
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Stream a frame file to a running service",
	Long: `Creates a session on a running service, streams the frames over the
session WebSocket and prints every pushed update.

Example:
  go run ./cmd/pose-replay remote --url http://localhost:9080 --frames frames.yaml --fps 15`,
	RunE: runRemote,
}

var (
	remoteURL     string
	remoteFrames  string
	remoteTimeout time.Duration
	remoteKeep    bool
)

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.Flags().StringVar(&remoteURL, "url", "http://localhost:9080", "base URL of the service")
	remoteCmd.Flags().StringVar(&remoteFrames, "frames", "", "frame file (YAML or JSON)")
	remoteCmd.Flags().DurationVar(&remoteTimeout, "timeout", 10*time.Second, "HTTP request timeout")
	remoteCmd.Flags().BoolVar(&remoteKeep, "keep", false, "leave the session open after the replay")
	_ = remoteCmd.MarkFlagRequired("frames")
}

func runRemote(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.Get().Named("replay")

	rec, err := replay.LoadRecording(remoteFrames)
	if err != nil {
		return err
	}

	client := replay.NewClient(remoteURL, remoteTimeout)
	id, err := client.CreateSession(ctx, pickReference(rec, catalog.DefaultMove))
	if err != nil {
		return err
	}
	log.Info(ctx, "session created", logger.String("sessionID", id), logger.Int("frames", len(rec.Frames)))

	sum, streamErr := client.Stream(ctx, id, rec.Frames, replay.Pacer(pickFPS(rec)), cmd.OutOrStdout())
	if !remoteKeep {
		endCtx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := client.EndSession(endCtx, id); err != nil {
			log.Warn(ctx, "end session failed", logger.String("sessionID", id), logger.Error(err))
		}
	}
	if streamErr != nil {
		return streamErr
	}
	replay.WriteSummary(cmd.OutOrStdout(), sum)
	return nil
}
