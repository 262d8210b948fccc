package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vertec-tools/timesheets/vertec"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Version: %s\n", vertec.Version)
	},
}
