package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/venturalitica/venturalitica-go/internal/store"
)

// historyCmd lists or shows recorded enforcement runs
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded enforcement runs",
	Long: `History lists enforcement runs recorded in the local run database,
newest first. Passing a run id prints that run in full, including its
per-control results.

Example:
  venturalitica history
  venturalitica history --limit 5
  venturalitica history 4f0c2a1e-... --json`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runHistory,
}

var (
	historyDBFlag    string
	historyLimitFlag int
	historyJSONFlag  bool
)

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", ".venturalitica/history.db", "Path to the run history database")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 10, "Maximum number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "Output JSON instead of text")
}

// GetHistoryCmd returns the history command
func GetHistoryCmd() *cobra.Command {
	return historyCmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(historyDBFlag); err != nil {
		return fmt.Errorf("no run history at %s (run 'venturalitica enforce' with --history first)", historyDBFlag)
	}

	hist, err := store.OpenHistory(historyDBFlag)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer hist.Close()

	ctx := cmd.Context()

	if len(args) == 1 {
		run, err := hist.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printRun(run)
	}

	runs, err := hist.Runs(ctx, historyLimitFlag)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if historyJSONFlag {
		out, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No enforcement runs recorded.")
		return nil
	}

	for _, run := range runs {
		printRunLine(run)
	}
	return nil
}

func printRun(run *store.Run) error {
	if historyJSONFlag {
		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printRunLine(*run)
	fmt.Println()
	for _, r := range run.Results {
		status := r.Status
		color := colorGreen
		if status != "PASS" && status != "SKIPPED" {
			color = colorRed
		}
		fmt.Printf("  %s%-7s%s %s (%s)\n", color, status, colorReset, r.ControlID, r.MetricKey)
	}
	return nil
}

func printRunLine(run store.Run) {
	outcome := fmt.Sprintf("%s✓%s", colorGreen, colorReset)
	if run.Summary.Failed > 0 || run.Summary.Errors > 0 {
		outcome = fmt.Sprintf("%s✗%s", colorRed, colorReset)
	}
	mode := "lenient"
	if run.Strict {
		mode = "strict"
	}
	fmt.Printf("%s  %s  %s  %s  %d passed / %d failed / %d skipped\n",
		outcome,
		run.Timestamp.Local().Format("2006-01-02 15:04:05"),
		run.ID,
		mode,
		run.Summary.Passed, run.Summary.Failed, run.Summary.Skipped)
	if run.Policy != "" {
		fmt.Printf("   policy: %s\n", run.Policy)
	}
}
