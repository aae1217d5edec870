package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X ...cli.version=".
var version = "dev"

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "healthcare-portal-server",
	Short: "Healthcare portal API with symptom based disease analysis",
	Long: `healthcare-portal-server runs the portal's REST API: accounts, the symptom
catalog and disease analysis history.

The disease analysis is a heuristic over a fixed symptom to disease table. It
is informational only and never a diagnosis.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "healthcare-portal-server %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file; environment variables override it")
	rootCmd.AddCommand(versionCmd)
}
