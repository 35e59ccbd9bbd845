package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/lintbox/internal/isolation"
	"github.com/harrison/lintbox/internal/logger"
)

// NewPruneCommand creates the prune command
func NewPruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove abandoned isolation contexts",
		Long: `Remove isolation context directories left behind by invocations that
were interrupted before they could clean up, for example when the calling
process was killed.

A context is only removed when no live invocation holds its lock and it is
older than --older-than.`,
		Args: cobra.NoArgs,
		RunE: runPrune,
	}

	cmd.Flags().Duration("older-than", time.Hour, "Only remove contexts older than this")

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan < 0 {
		return fmt.Errorf("--older-than must be >= 0, got %v", olderThan)
	}

	factory := isolation.NewFactory(cfg.ScratchDir, logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel))
	removed, err := factory.Prune(olderThan)
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d abandoned context(s) from %s\n", removed, cfg.ScratchDir)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return nil
}
