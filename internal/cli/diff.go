package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/venturalitica/venturalitica-go/internal/differ"
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff <baseline.json> <current.json>",
	Short: "Compare two compliance result files",
	Long: `Diff compares a current compliance results file against a baseline
and reports what has changed per control.

This is the "Semantic Translator" - it tells you exactly what changed
in human-readable terms, not just raw JSON patches.

Example:
  venturalitica diff baseline_results.json oscal_results.json`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE:         runDiff,
}

// GetDiffCmd returns the diff command
func GetDiffCmd() *cobra.Command {
	return diffCmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	baselinePath, currentPath := args[0], args[1]

	result, err := differ.ComputeDiff(baselinePath, currentPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: diff failed: %v\n", err)
		os.Exit(2) // Exit 2 = runtime error (missing file, parse error)
		return nil
	}

	// Exit 0 = no drift (results match baseline)
	if !result.HasChanges {
		fmt.Printf("%s✓ No changes detected - results match baseline%s\n", colorGreen, colorReset)
		return nil
	}

	// Print header for changes
	fmt.Printf("\n%s╔══════════════════════════════════════╗%s\n", colorYellow, colorReset)
	fmt.Printf("%s║         CHANGES DETECTED             ║%s\n", colorYellow, colorReset)
	fmt.Printf("%s╚══════════════════════════════════════╝%s\n\n", colorYellow, colorReset)

	for _, cd := range result.ControlDiffs {
		if cd.DiffType == differ.DiffTypeNoChange {
			continue
		}
		printControlDiff(cd)
	}

	// Exit 1 = drift detected (changes found)
	os.Exit(1)
	return nil
}

func printControlDiff(cd differ.ControlDiff) {
	var headerColor string
	var icon string

	switch cd.DiffType {
	case differ.DiffTypeAdded:
		headerColor = colorYellow
		icon = "+"
	case differ.DiffTypeRemoved:
		headerColor = colorRed
		icon = "-"
	case differ.DiffTypeChanged:
		headerColor = colorYellow
		icon = "~"
	default:
		headerColor = colorReset
		icon = " "
	}

	fmt.Printf("%s[%s] %s%s\n", headerColor, icon, cd.ControlID, colorReset)

	// Print each translation with appropriate color
	for _, translation := range cd.Translations {
		severity := differ.GetSeverity(translation)
		color := getColorForSeverity(severity)
		fmt.Printf("  %s• %s%s\n", color, translation, colorReset)
	}

	fmt.Println()
}

func getColorForSeverity(severity differ.SeverityLevel) string {
	switch severity {
	case differ.SeverityCritical:
		return colorRed
	case differ.SeverityModerate:
		return colorYellow
	case differ.SeveritySafe:
		return colorGreen
	default:
		return colorReset
	}
}
