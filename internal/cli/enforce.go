package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/venturalitica/venturalitica-go/internal/audit"
	"github.com/venturalitica/venturalitica-go/internal/enforce"
	"github.com/venturalitica/venturalitica-go/internal/observability"
	"github.com/venturalitica/venturalitica-go/internal/observability/logging"
	otelobs "github.com/venturalitica/venturalitica-go/internal/observability/otel"
	"github.com/venturalitica/venturalitica-go/internal/observability/receipt"
)

// enforceCmd runs policies against a dataset
var enforceCmd = &cobra.Command{
	Use:   "enforce --data <csv> --policy <file-or-preset> [--policy ...]",
	Short: "Evaluate governance policies against a dataset",
	Long: `Loads a CSV dataset, binds its columns to the roles each control needs,
computes the metrics, and reports one PASS/FAIL/SKIPPED/ERROR result per
control.

In lenient mode (the default outside CI) unresolvable bindings degrade to
SKIPPED and computation failures to ERROR, and the run completes. Strict
mode aborts on the first such failure; it is implied by CI=true or
VENTURALITICA_STRICT=true and can be forced either way with --strict or
--lenient.

Examples:
  # Enforce a policy file against a loan dataset
  venturalitica enforce --data loans.csv --policy governance.oscal.yaml

  # Built-in preset, explicit column bindings
  venturalitica enforce --data loans.csv --policy fairness \
    --target approved --bind gender=sex_col

  # Precomputed metric values, no dataset
  venturalitica enforce --metrics values.json --policy fairness

  # JSON output for CI
  venturalitica enforce --data loans.csv --policy fairness --format=json`,
	RunE:         runEnforce,
	SilenceUsage: true,
}

var (
	enforceDataFlag       string
	enforcePolicyFlag     []string
	enforceTargetFlag     string
	enforcePredictionFlag string
	enforceBindFlag       []string
	enforceMetricsFlag    string
	enforceStrictFlag     bool
	enforceLenientFlag    bool
	enforceFormatFlag     string
	enforceFailOnFlag     string
	enforceResultsFlag    string
	enforceHistoryFlag    string
	enforceQuietFlag      bool
)

func init() {
	enforceCmd.Flags().StringVar(&enforceDataFlag, "data", "", "Path to CSV dataset")
	enforceCmd.Flags().StringArrayVar(&enforcePolicyFlag, "policy", nil, "Policy file or preset name (repeatable)")
	enforceCmd.Flags().StringVar(&enforceTargetFlag, "target", "", "Target column or variable hint")
	enforceCmd.Flags().StringVar(&enforcePredictionFlag, "prediction", "", "Prediction column or variable hint")
	enforceCmd.Flags().StringArrayVar(&enforceBindFlag, "bind", nil, "Bind a variable to a column, var=column (repeatable)")
	enforceCmd.Flags().StringVar(&enforceMetricsFlag, "metrics", "", "JSON file of precomputed metric values")
	enforceCmd.Flags().BoolVar(&enforceStrictFlag, "strict", false, "Force strict mode (abort on first failure)")
	enforceCmd.Flags().BoolVar(&enforceLenientFlag, "lenient", false, "Force lenient mode (overrides CI detection)")
	enforceCmd.Flags().StringVar(&enforceFormatFlag, "format", "text", "Output format: text or json")
	enforceCmd.Flags().StringVar(&enforceFailOnFlag, "fail-on", "any", "Failure threshold for exit code: any, high, or never")
	enforceCmd.Flags().StringVar(&enforceResultsFlag, "results", "", "Merge results into this JSON evidence file")
	enforceCmd.Flags().StringVar(&enforceHistoryFlag, "history", "", "Record the run in this SQLite history database")
	enforceCmd.Flags().BoolVar(&enforceQuietFlag, "quiet", false, "Suppress audit narration")
	_ = enforceCmd.MarkFlagRequired("policy")
}

// GetEnforceCmd export
func GetEnforceCmd() *cobra.Command {
	return enforceCmd
}

func runEnforce(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "venturalitica enforce", os.Args[1:])
	var receiptOpts []receipt.Option

	defer func() {
		_ = sess.Finish(err, receiptOpts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	// Start OTel span if enabled
	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "venturalitica.enforce",
			trace.WithAttributes(
				attribute.String("venturalitica.op_id", observability.OpID(ctx)),
				attribute.String("venturalitica.command", "enforce"),
				attribute.StringSlice("venturalitica.policies", enforcePolicyFlag),
			))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed")
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			span.End()
		}()
	}

	log.Event(ctx, "enforce.start", nil)

	var resultStatus string
	defer func() {
		log.Event(ctx, "enforce.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	failOn, parseErr := ParseFailOnLevel(enforceFailOnFlag)
	if parseErr != nil {
		resultStatus = "fail"
		return parseErr
	}
	if enforceFormatFlag != "text" && enforceFormatFlag != "json" {
		resultStatus = "fail"
		return fmt.Errorf("invalid format: %s (use text or json)", enforceFormatFlag)
	}
	if enforceStrictFlag && enforceLenientFlag {
		resultStatus = "fail"
		return fmt.Errorf("--strict and --lenient are mutually exclusive")
	}
	if enforceDataFlag == "" && enforceMetricsFlag == "" {
		resultStatus = "fail"
		return fmt.Errorf("need --data or --metrics")
	}

	opts := enforce.Options{
		DataPath:    enforceDataFlag,
		Policies:    enforcePolicyFlag,
		Target:      enforceTargetFlag,
		Prediction:  enforcePredictionFlag,
		ResultsPath: enforceResultsFlag,
		HistoryPath: enforceHistoryFlag,
	}

	if enforceStrictFlag || enforceLenientFlag {
		strict := enforceStrictFlag
		opts.Strict = &strict
	}

	if len(enforceBindFlag) > 0 {
		opts.Bindings = make(map[string]string, len(enforceBindFlag))
		for _, spec := range enforceBindFlag {
			variable, column, ok := strings.Cut(spec, "=")
			if !ok || variable == "" || column == "" {
				resultStatus = "fail"
				return fmt.Errorf("invalid --bind %q (want var=column)", spec)
			}
			opts.Bindings[variable] = column
		}
	}

	if enforceMetricsFlag != "" {
		values, loadErr := loadMetricValues(enforceMetricsFlag)
		if loadErr != nil {
			resultStatus = "fail"
			return loadErr
		}
		opts.Metrics = values
	}

	if enforceQuietFlag || enforceFormatFlag == "json" {
		opts.Sink = audit.Discard()
	} else {
		opts.Sink = &audit.Console{W: os.Stdout}
	}

	report, err := enforce.Enforce(ctx, opts)
	if err != nil {
		resultStatus = "fail"
		return err
	}

	output := BuildEnforceOutput(report, failOn)
	receiptOpts = append(receiptOpts, buildReceiptOpts(report, output)...)

	if enforceFormatFlag == "json" {
		encoded, jsonErr := FormatJSONOutput(output)
		if jsonErr != nil {
			resultStatus = "fail"
			return fmt.Errorf("failed to format JSON output: %w", jsonErr)
		}
		fmt.Println(string(encoded))
	} else {
		fmt.Print(FormatTextOutput(output))
	}

	if output.Outcome == "FAIL" {
		resultStatus = "fail"
		// For JSON format, exit without returning error to avoid
		// "Error: ..." corrupting stdout
		if enforceFormatFlag == "json" {
			teardownContext(cmd, args)
			_ = sess.Finish(fmt.Errorf("enforcement failed"), receiptOpts...)
			os.Exit(1)
		}
		if !report.GatePassed() {
			return fmt.Errorf("gate rule failed")
		}
		return fmt.Errorf("%d control(s) failed", report.Summary.Failed)
	}

	resultStatus = "success"
	return nil
}

// loadMetricValues reads a flat {"metric_key": value} JSON document.
func loadMetricValues(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics file: %w", err)
	}
	var values map[string]float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse metrics file %s: %w", path, err)
	}
	return values, nil
}

func buildReceiptOpts(report *enforce.Report, output *EnforceOutput) []receipt.Option {
	opts := []receipt.Option{
		receipt.WithRun(report.Summary.Total, report.Summary.Passed,
			report.Summary.Failed, report.Summary.Skipped, report.Summary.Errors),
	}
	for _, pol := range report.Policies {
		opts = append(opts, receipt.WithPolicy(receipt.PolicyRef{
			Title:    pol.Title,
			Version:  pol.Version,
			UUID:     pol.UUID,
			Controls: len(pol.Controls),
		}))
	}
	if enforceDataFlag != "" {
		opts = append(opts, receipt.WithDataset(enforceDataFlag, 0, 0))
	}
	if len(report.Gates) > 0 {
		status := "pass"
		var hits []receipt.RuleHit
		for _, g := range report.Gates {
			if !g.Passed {
				status = "fail"
				hits = append(hits, receipt.RuleHit{Name: g.RuleName, Message: g.FailureMsg})
			}
		}
		opts = append(opts, receipt.WithGate(status, hits))
	}
	return opts
}
