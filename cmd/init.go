// cmd/init.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markb/tably/internal/db"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new tably database",
	Long:  `Creates the database file and applies the schema, including the seeded subscription plans.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")

		if _, err := os.Stat(dbPath); err == nil {
			return fmt.Errorf("database already exists at %s", dbPath)
		}

		database, err := db.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer database.Close()

		if err := database.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		fmt.Printf("Initialized database at %s\n", dbPath)
		fmt.Println("Next steps:")
		fmt.Println("  tably admin create --email you@example.com --restaurant \"Your Restaurant\"")
		fmt.Println("  tably serve")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("db", "tably.db", "Path to database file")
}
