// cmd/admin.go
package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/markb/tably/internal/auth"
	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/types"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage restaurant admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		email, _ := cmd.Flags().GetString("email")
		restaurant, _ := cmd.Flags().GetString("restaurant")
		password, _ := cmd.Flags().GetString("password")

		if err := types.ValidateEmail(email); err != nil {
			return err
		}
		if restaurant == "" {
			return fmt.Errorf("--restaurant is required")
		}

		if password == "" {
			fmt.Print("Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			fmt.Print("Confirm password: ")
			confirm, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if string(raw) != string(confirm) {
				return fmt.Errorf("passwords do not match")
			}
			password = string(raw)
		}
		if err := types.ValidatePassword(password); err != nil {
			return err
		}

		database, err := openExisting(dbPath)
		if err != nil {
			return err
		}
		defer database.Close()

		svc := auth.NewService(database, "")
		admin, err := svc.CreateAdmin(email, password, restaurant)
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		fmt.Printf("Created admin %s (%s) for %q on plan %s\n", admin.Email, admin.ID, admin.RestaurantName, admin.PlanID)
		return nil
	},
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")

		database, err := openExisting(dbPath)
		if err != nil {
			return err
		}
		defer database.Close()

		rows, err := database.Query(`
			SELECT email, restaurant_name, plan_id, last_sign_in_at, created_at
			FROM admins ORDER BY created_at`)
		if err != nil {
			return fmt.Errorf("failed to list admins: %w", err)
		}
		defer rows.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMAIL\tRESTAURANT\tPLAN\tLAST SIGN-IN\tCREATED")
		for rows.Next() {
			var email, restaurant, plan, created string
			var lastSignIn sql.NullString
			if err := rows.Scan(&email, &restaurant, &plan, &lastSignIn, &created); err != nil {
				return err
			}
			signIn := "never"
			if lastSignIn.Valid {
				signIn = lastSignIn.String
			}
			if t, err := time.Parse(time.RFC3339, created); err == nil {
				created = t.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", email, restaurant, plan, signIn, created)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return w.Flush()
	},
}

func openExisting(dbPath string) (*db.DB, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s. Run 'tably init' first", dbPath)
	}
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, nil
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)
	adminCmd.AddCommand(adminListCmd)

	adminCmd.PersistentFlags().String("db", "tably.db", "Path to database file")
	adminCreateCmd.Flags().String("email", "", "Admin email address")
	adminCreateCmd.Flags().String("restaurant", "", "Restaurant name")
	adminCreateCmd.Flags().String("password", "", "Password (prompted when omitted)")
}
