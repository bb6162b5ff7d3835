package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Brownie44l1/pesticide-api/internal/classify"
	"github.com/spf13/cobra"
)

var predictJSON bool

var predictCmd = &cobra.Command{
	Use:   "predict <image>",
	Short: "Classify a local JPG or PNG file",
	Long: `Predict runs one image through the classifier and prints the label,
confidence and fact sheet.

Example:
  pesticide predict samples/spray.jpg
  pesticide predict samples/spray.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the result as JSON")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	svc, lazy, err := newClassifier(cfg, log)
	if err != nil {
		return err
	}
	defer closeClassifier(lazy, log)

	outcome, err := svc.Classify(cmd.Context(), raw)
	if err != nil {
		return err
	}

	if predictJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	return printOutcome(cmd.OutOrStdout(), outcome)
}

func printOutcome(w io.Writer, o *classify.Outcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Predicted Pesticide Class: %s\n", strings.ToUpper(o.Label.String()))
	fmt.Fprintf(&b, "Confidence Score: %.2f\n", o.Confidence)
	if o.LowConfidence {
		b.WriteString("WARNING: Confidence is low. Please verify the prediction manually.\n")
	}
	b.WriteString("\nDetailed Information\n")
	fmt.Fprintf(&b, "  Description:         %s\n", o.Info.Description)
	fmt.Fprintf(&b, "  Mode of Action:      %s\n", o.Info.ModeOfAction)
	fmt.Fprintf(&b, "  Common Examples:     %s\n", o.Info.Examples)
	fmt.Fprintf(&b, "  Typical Application: %s\n", o.Info.Application)

	_, err := io.WriteString(w, b.String())
	return err
}
