// Package main provides the entry point for the ATS resume optimizer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ats_optimizer",
	Short: "ATS Resume Optimizer",
	Long:  "ATS Resume Optimizer tailors a LaTeX resume to a job posting using profile evidence collected from GitHub, Google Scholar, and LinkedIn.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
