package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resell-reports/internal/config"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  "Load and validate the configuration file: format, required fields, ranges and driver-specific settings.",
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate executes the validate command logic.
func runValidate(cmd *cobra.Command, args []string) {
	configPath := GetConfigFile()

	// Load and validate configuration (Load internally calls Validate)
	_, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ configuration invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ configuration valid: %s\n", configPath)
}
