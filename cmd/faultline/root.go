// Package faultline implements the faultline command line.
package faultline

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "faultline",
		Short: "AI diagnosis for failed CI build steps",
		Long: `faultline collects the context of a failed build step, removes secrets and
personal data from it, asks an LLM provider for a diagnosis and prints a
report suitable for a CI annotation.

Analysis problems never fail the build: when every provider is unavailable
a degraded report is produced instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to the YAML configuration file")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(versionCmd)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := run(NewRootCmd(), os.Args[1:], os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(root *cobra.Command, args []string, stderr io.Writer) error {
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return err
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
