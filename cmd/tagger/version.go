package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagger/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "tagger", config.Version)
	},
}
