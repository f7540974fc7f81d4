package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the gridbt CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gridbt version %s\n", version)
		fmt.Println("Grid trading backtester")
		fmt.Println("https://github.com/rustyeddy/gridtrader")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
