package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"healthcare-portal-server/internal/prediction"
	"healthcare-portal-server/internal/utils"
)

var (
	predictSeed  uint64
	predictDelay time.Duration
	predictJSON  bool
)

var predictCmd = &cobra.Command{
	Use:   "predict <symptom>...",
	Short: "Score symptoms locally and print the ranked results",
	Long: `Predict runs the three scoring passes over the given symptom identifiers
and prints one result per pass, highest confidence first. Identifiers may be
given as separate arguments or comma separated.

Example:
  healthcare-portal-server predict back_pain neck_pain stiff_neck
  healthcare-portal-server predict itching,skin_rash --seed 42 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().Uint64Var(&predictSeed, "seed", 0, "seed for reproducible confidences (0 uses a random seed)")
	predictCmd.Flags().DurationVar(&predictDelay, "delay", prediction.DefaultDelay, "simulated processing delay")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print results as JSON")
}

type predictInput struct {
	Symptoms []string      `binding:"min=1,dive,required"`
	Delay    time.Duration `binding:"min=0"`
}

func runPredict(cmd *cobra.Command, args []string) error {
	input := predictInput{Symptoms: splitSymptoms(args), Delay: predictDelay}
	if err := utils.Validate(input); err != nil {
		return fmt.Errorf("invalid input: %s", utils.FormatValidationError(err))
	}

	kb := prediction.Default()
	opts := []prediction.Option{prediction.WithKnowledgeBase(kb), prediction.WithDelay(input.Delay)}
	if predictSeed != 0 {
		opts = append(opts, prediction.WithRandomSource(prediction.NewSeededSource(predictSeed)))
	}

	for _, s := range input.Symptoms {
		if !kb.IsKnownSymptom(s) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: unknown symptom %q is ignored\n", s)
		}
	}

	results := prediction.NewEngine(opts...).Predict(cmd.Context(), input.Symptoms)

	out := cmd.OutOrStdout()
	if predictJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALGORITHM\tDISEASE\tCONFIDENCE")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", r.Algorithm, r.Disease, r.Confidence*100)
	}
	return w.Flush()
}

// splitSymptoms accepts both separate arguments and comma separated lists.
// Blank entries are dropped.
func splitSymptoms(args []string) []string {
	var symptoms []string
	for _, arg := range args {
		for _, s := range strings.Split(arg, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symptoms = append(symptoms, s)
			}
		}
	}
	return symptoms
}
