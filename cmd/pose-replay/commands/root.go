// Package commands implements the pose-replay CLI.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/replay"
	"github.com/okian/poseparty/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	catalogPath string
	reference   string
	fps         float64
	logFormat   string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pose-replay",
	Short: "Replay pose frames through the scoring engine",
	Long: `pose-replay drives recorded or synthetic pose frames through the
scoring engine, in-process or against a running service.

Examples:
  go run ./cmd/pose-replay synth --reference tadasana.png --count 60 > frames.yaml
  go run ./cmd/pose-replay local --frames frames.yaml --fps 15
  go run ./cmd/pose-replay remote --url http://localhost:9080 --frames frames.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.InitWithOptions(logFormat, cmd.ErrOrStderr()); err != nil {
			return err
		}
		if verbose {
			return logger.SetLevelString("debug")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "reference catalog file (default is the embedded catalog)")
	rootCmd.PersistentFlags().StringVar(&reference, "reference", "", "reference pose id (default from the frame file, then the catalog default)")
	rootCmd.PersistentFlags().Float64Var(&fps, "fps", 0, "frames per second; 0 replays as fast as possible")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadCatalog() (*catalog.InMemory, error) {
	if catalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(catalogPath)
}

// pickReference resolves the reference id: flag, then recording, then fallback.
func pickReference(rec *replay.Recording, fallback string) string {
	switch {
	case reference != "":
		return reference
	case rec != nil && rec.Reference != "":
		return rec.Reference
	default:
		return fallback
	}
}

// pickFPS prefers the flag, then the recording's own rate.
func pickFPS(rec *replay.Recording) float64 {
	if fps > 0 || rec == nil {
		return fps
	}
	return rec.FPS
}
