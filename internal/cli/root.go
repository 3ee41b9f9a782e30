package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/venturalitica/venturalitica-go/internal/observability"
	"github.com/venturalitica/venturalitica-go/internal/observability/logging"
	otelobs "github.com/venturalitica/venturalitica-go/internal/observability/otel"
	"github.com/venturalitica/venturalitica-go/internal/observability/receipt"
	"github.com/venturalitica/venturalitica-go/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "venturalitica",
	Short: "AI governance enforcement for datasets and models",
	Long: `venturalitica: compliance-as-code for AI systems.
Binds tabular data to OSCAL policy documents and evaluates fairness,
privacy, performance, and data-quality controls.`,
	Version:           version.BuildVersion(),
	PersistentPreRunE: setupContext,
	PersistentPostRun: teardownContext,
}

var (
	otelFlag         bool
	otelEndpointFlag string
	otelProtocolFlag string
	otelInsecureFlag bool
	receiptFlag      string
	receiptModeFlag  string

	activeLogger  logging.Logger
	activeHandle  *otelobs.Handle
	activeReceipt receipt.Writer
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&otelFlag, "otel", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().StringVar(&otelEndpointFlag, "otel-endpoint", "", "OTLP endpoint (or OTEL_EXPORTER_OTLP_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&otelProtocolFlag, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	rootCmd.PersistentFlags().BoolVar(&otelInsecureFlag, "otel-insecure", false, "Allow insecure OTLP connections")
	rootCmd.PersistentFlags().StringVar(&receiptFlag, "receipt", "", "Write an evidence receipt to this path")
	rootCmd.PersistentFlags().StringVar(&receiptModeFlag, "receipt-mode", "overwrite", "Receipt write mode: overwrite or append")

	rootCmd.AddCommand(GetEnforceCmd())
	rootCmd.AddCommand(GetPolicyCmd())
	rootCmd.AddCommand(GetScanCmd())
	rootCmd.AddCommand(GetDiffCmd())
	rootCmd.AddCommand(GetHistoryCmd())
}

// setupContext wires the operation id, logger, optional tracing, and
// optional receipt writer into the command context.
func setupContext(cmd *cobra.Command, args []string) error {
	ctx := observability.WithOpID(cmd.Context())

	logCfg := logging.DefaultConfig()
	if f := os.Getenv("VENTURALITICA_LOG"); f != "" {
		logCfg.Format = f
	}
	if lvl := os.Getenv("VENTURALITICA_LOG_LEVEL"); lvl != "" {
		logCfg.Level = lvl
	}
	if out := os.Getenv("VENTURALITICA_LOG_OUTPUT"); out != "" {
		logCfg.Output = out
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	activeLogger = logger
	ctx = logging.WithLogger(ctx, logger)

	if otelFlag {
		cfg := otelobs.DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = otelEndpointFlag
		cfg.Protocol = otelProtocolFlag
		cfg.Insecure = otelInsecureFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
		handle, err := otelobs.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		activeHandle = handle
		ctx = otelobs.WithHandle(ctx, handle)
	}

	if receiptFlag != "" {
		w, err := receipt.NewWriter(receiptFlag, receiptModeFlag)
		if err != nil {
			return err
		}
		activeReceipt = w
		ctx = receipt.WithWriter(ctx, w)
	}

	cmd.SetContext(ctx)
	return nil
}

func teardownContext(cmd *cobra.Command, args []string) {
	if activeReceipt != nil {
		_ = activeReceipt.Close()
	}
	if activeHandle != nil {
		_ = activeHandle.Shutdown(context.Background())
	}
	if activeLogger != nil {
		_ = activeLogger.Close()
	}
}
