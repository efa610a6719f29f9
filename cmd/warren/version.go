package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of warren",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("warren version %s\n", warren.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
