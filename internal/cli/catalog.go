package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"healthcare-portal-server/internal/handlers"
	"healthcare-portal-server/internal/prediction"
)

var catalogJSON bool

var symptomsCmd = &cobra.Command{
	Use:   "symptoms",
	Short: "List symptom identifiers with their display names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		options := handlers.SymptomOptions(prediction.Default())
		if catalogJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(options)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, o := range options {
			fmt.Fprintf(w, "%s\t%s\n", o.ID, o.Name)
		}
		return w.Flush()
	},
}

var diseasesCmd = &cobra.Command{
	Use:   "diseases",
	Short: "List the diseases the engine can report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		diseases := prediction.Default().Diseases()
		if catalogJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(diseases)
		}
		for _, d := range diseases {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(symptomsCmd)
	rootCmd.AddCommand(diseasesCmd)

	symptomsCmd.Flags().BoolVar(&catalogJSON, "json", false, "print as JSON")
	diseasesCmd.Flags().BoolVar(&catalogJSON, "json", false, "print as JSON")
}
