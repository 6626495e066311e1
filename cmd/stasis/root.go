package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stasis",
	Short: "Stasis CLI tool inspects save files produced by the stasis library.",
	Long: `Stasis CLI tool inspects save files produced by the stasis library. ` +
		`It lists the saves in a directory (list) and dumps the structure of a ` +
		`single save file (show).`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
