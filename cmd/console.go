package cmd

import (
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive terminal consoles for review work",
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
