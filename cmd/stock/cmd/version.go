package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the stock CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stock version %s\n", version)
		fmt.Println("Historical stock price fetcher with a coverage-based cache")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
