package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren/pkg/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow]",
	Short: "Check a flow definition for consistency",
	Long:  `Parses the flow YAML and reports unknown states, missing prompts and broken transitions.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("flow")
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = "flows/animal_control.yaml"
	}

	reg, err := registry.LoadFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("%d states, start: %s\n", reg.Len(), reg.Start().Name)
	for _, def := range reg.States() {
		line := "  " + def.Name
		if def.Terminal() {
			line += " (terminal)"
		} else {
			line += " -> " + strings.Join(def.AllowedNext, ", ")
		}
		fmt.Println(line)
	}
	return nil
}
