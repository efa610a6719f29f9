package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Warren is a conversation state engine for animal control intake",
	Long: `Warren drives intake calls through a declared flow of states, delegating
field extraction and phrasing to a language model while keeping every
transition validated, ordered and recorded.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("flow", "", "Path to the flow YAML (overrides WARREN_FLOW)")
}
