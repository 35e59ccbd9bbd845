package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/lintbox/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [project-file]",
		Short: "Show recent lint invocations",
		Long: `Display recent lint invocations recorded in the history database,
newest first, including:
  - Outcome (ok or the stage of the boundary that failed)
  - Error and warning counts
  - Isolation context id and duration
  - The failure message for unsuccessful invocations`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of invocations to show")
	cmd.Flags().Bool("stats", false, "Show invocation counts by outcome instead of a list")
	cmd.Flags().Int("keep-days", 0, "Delete invocations older than this many days first (0 = keep all)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		fmt.Fprintln(output, "No invocations recorded yet")
		return nil
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	if keepDays, _ := cmd.Flags().GetInt("keep-days"); keepDays > 0 {
		removed, err := store.Cleanup(ctx, keepDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "Deleted %d invocation(s) older than %d days\n", removed, keepDays)
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		counts, err := store.OutcomeCounts(ctx)
		if err != nil {
			return err
		}
		displayOutcomeCounts(output, counts)
		return nil
	}

	project := ""
	if len(args) == 1 {
		if project, err = filepath.Abs(args[0]); err != nil {
			return fmt.Errorf("resolve project file path: %w", err)
		}
	}
	limit, _ := cmd.Flags().GetInt("limit")

	invocations, err := store.Recent(ctx, project, limit)
	if err != nil {
		return err
	}
	if len(invocations) == 0 {
		fmt.Fprintln(output, "No invocations recorded yet")
		return nil
	}

	displayInvocations(output, invocations)
	return nil
}

func displayInvocations(w io.Writer, invocations []*history.Invocation) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, inv := range invocations {
		outcome := green(inv.Outcome)
		switch {
		case !inv.Succeeded():
			outcome = red(inv.Outcome)
		case inv.Warnings > 0 && inv.Errors == 0:
			outcome = yellow(inv.Outcome)
		case inv.Errors > 0:
			outcome = red(inv.Outcome)
		}

		fmt.Fprintf(w, "%s  %s  %s\n", inv.Timestamp.Local().Format("2006-01-02 15:04:05"), outcome, inv.ProjectFile)
		if inv.Succeeded() {
			fmt.Fprintf(w, "    %s: %d errors, %d warnings in %s\n", inv.Status, inv.Errors, inv.Warnings, inv.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(w, "    %s\n", inv.Message)
		}
		if inv.ContextID != "" {
			fmt.Fprintf(w, "    context %s, worker %s\n", inv.ContextID, inv.Worker)
		}
	}
}

func displayOutcomeCounts(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No invocations recorded yet")
		return
	}

	outcomes := make([]string, 0, len(counts))
	total := 0
	for outcome, n := range counts {
		outcomes = append(outcomes, outcome)
		total += n
	}
	sort.Strings(outcomes)

	fmt.Fprintf(w, "Invocations: %d\n", total)
	for _, outcome := range outcomes {
		fmt.Fprintf(w, "  %-18s %d\n", outcome, counts[outcome])
	}
}
