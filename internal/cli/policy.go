package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/venturalitica/venturalitica-go/internal/metrics"
	"github.com/venturalitica/venturalitica-go/internal/models"
	"github.com/venturalitica/venturalitica-go/internal/policy"
)

// policyCmd group
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Policy management commands",
	Long:  `Validate and inspect governance policy documents.`,
}

// policyValidateCmd
var policyValidateCmd = &cobra.Command{
	Use:   "validate <file-or-preset>",
	Short: "Validate a policy document",
	Long: `Parses a policy document, checks every control (metric key, threshold,
operator) and compiles any gate rules.

Example:
  venturalitica policy validate governance.oscal.yaml
  venturalitica policy validate fairness`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runPolicyValidate,
}

func init() {
	policyCmd.AddCommand(policyValidateCmd)
}

// GetPolicyCmd export
func GetPolicyCmd() *cobra.Command {
	return policyCmd
}

// loadPolicyArg resolves a file path or preset name.
func loadPolicyArg(name string) (*models.Policy, error) {
	if _, err := os.Stat(name); err == nil {
		return policy.Load(name)
	}
	if pol := policy.GetPreset(name); pol != nil {
		return pol, nil
	}
	return nil, fmt.Errorf("policy %q: no such file or preset (presets: %s)",
		name, strings.Join(policy.ListPresetNames(), ", "))
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	pol, err := loadPolicyArg(args[0])
	if err != nil {
		return err
	}

	// Parser guarantees threshold/operator shape; still flag metric keys
	// the registry has never heard of.
	registry := metrics.Default()
	var unknown []string
	for _, ctrl := range pol.Controls {
		if _, err := registry.Get(ctrl.MetricKey); err != nil {
			unknown = append(unknown, fmt.Sprintf("%s (%s)", ctrl.ID, ctrl.MetricKey))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown metric keys: %s", strings.Join(unknown, ", "))
	}

	if len(pol.Rules) > 0 {
		engine, err := policy.NewGateEngine()
		if err != nil {
			return err
		}
		if err := engine.CompileAndValidate(pol); err != nil {
			return err
		}
	}

	fmt.Printf("%s✓ Policy '%s' is valid%s (%d controls, %d gate rules)\n",
		colorGreen, pol.Title, colorReset, len(pol.Controls), len(pol.Rules))
	return nil
}
