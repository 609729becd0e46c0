// Package main provides the entry point for the Prep Mirrors waitlist API and tooling.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "prepmirrors",
	Short:        "Prep Mirrors waitlist and onboarding funnel",
	Long:         "Prep Mirrors captures waitlist sign-ups and walks each visitor through a short onboarding funnel that ends with a personalized practice summary.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (environment variables take precedence)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
