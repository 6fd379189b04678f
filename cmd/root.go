// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:     "tably",
	Short:   "Tably - QR code ordering for restaurants",
	Long:    `A single-binary restaurant ordering backend: customers scan a table's QR code, order from their phone, and the kitchen dashboard updates live.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("tably version {{.Version}}\n")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
