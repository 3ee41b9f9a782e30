package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/venturalitica/venturalitica-go/internal/observability"
	"github.com/venturalitica/venturalitica-go/internal/observability/logging"
	otelobs "github.com/venturalitica/venturalitica-go/internal/observability/otel"
	"github.com/venturalitica/venturalitica-go/internal/scanner"
)

// scanCmd definition
var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Generate a CycloneDX ML-BOM for a project",
	Long: `Scans a project directory for Python and Go dependency manifests and
ML model constructors, and emits a CycloneDX 1.5 bill of materials.

Example:
  venturalitica scan
  venturalitica scan ./ml-project --output bom.json`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runScan,
}

var scanOutputFlag string

func init() {
	scanCmd.Flags().StringVarP(&scanOutputFlag, "output", "o", "", "Write BOM to file (default: stdout)")
}

// GetScanCmd exports the scan command
func GetScanCmd() *cobra.Command {
	return scanCmd
}

func runScan(cmd *cobra.Command, args []string) (err error) {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	ctx := cmd.Context()
	log := logging.From(ctx)
	start := time.Now()

	// Start OTel span if enabled (before log.Event so trace_id is available)
	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "venturalitica.scan",
			trace.WithAttributes(
				attribute.String("venturalitica.op_id", observability.OpID(ctx)),
				attribute.String("venturalitica.command", "scan"),
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

	log.Event(ctx, "scan.start", map[string]any{"dir": dir})

	var resultStatus string
	var componentCount int
	defer func() {
		log.Event(ctx, "scan.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
			"components":  componentCount,
		})
	}()

	bom, scanErr := scanner.Scan(dir)
	if scanErr != nil {
		resultStatus = "fail"
		return fmt.Errorf("scan failed: %w", scanErr)
	}
	componentCount = len(bom.Components)

	output, err := bom.JSON()
	if err != nil {
		resultStatus = "fail"
		return fmt.Errorf("failed to marshal BOM: %w", err)
	}

	if scanOutputFlag != "" {
		if err := os.WriteFile(scanOutputFlag, output, 0644); err != nil {
			resultStatus = "fail"
			return fmt.Errorf("failed to write BOM: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ BOM written to %s (%d components)\n", scanOutputFlag, componentCount)
	} else {
		fmt.Println(string(output))
	}

	resultStatus = "success"
	return nil
}
