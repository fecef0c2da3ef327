package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "certivo",
	Short: "Certivo is a biometric human-verification service",
	Long: `A challenge session engine for biometric human verification: adaptive
liveness challenges, anti-replay media binding, and device trust scoring.
Complete documentation is available at https://github.com/certivo/certivo`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
