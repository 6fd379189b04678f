// cmd/keys.go
package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate a JWT signing secret",
	Long:  `Generates a random secret suitable for signing access tokens. Export it before starting the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("failed to generate secret: %w", err)
		}
		fmt.Printf("TABLY_JWT_SECRET=%s\n", base64.RawURLEncoding.EncodeToString(buf))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
