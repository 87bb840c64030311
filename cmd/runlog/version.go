// ABOUTME: CLI command printing the runlog version.
// ABOUTME: The version is set at build time with -ldflags "-X main.version=...".
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the runlog version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("runlog", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
