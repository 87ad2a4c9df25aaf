package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sw "github.com/grahms/segmentweaver"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of segmentweaver",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "segmentweaver version %s\n", sw.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
