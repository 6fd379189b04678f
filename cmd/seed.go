// cmd/seed.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markb/tably/internal/auth"
	"github.com/markb/tably/internal/menu"
	"github.com/markb/tably/internal/table"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo restaurant with sample data",
	Long:  `Creates a demo admin account with categories, menu items, and tables so the APIs can be explored without manual setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")

		database, err := openExisting(dbPath)
		if err != nil {
			return err
		}
		defer database.Close()

		authSvc := auth.NewService(database, "")
		admin, err := authSvc.CreateAdmin("demo@tably.dev", "demo-password", "Trattoria Demo")
		if err != nil {
			return fmt.Errorf("failed to create demo admin: %w", err)
		}

		menus := menu.NewStore(database)
		starters, err := menus.CreateCategory(admin.ID, "Starters", "salad", 1)
		if err != nil {
			return err
		}
		mains, err := menus.CreateCategory(admin.ID, "Mains", "pizza", 2)
		if err != nil {
			return err
		}
		drinks, err := menus.CreateCategory(admin.ID, "Drinks", "glass", 3)
		if err != nil {
			return err
		}

		items := []struct {
			category   int64
			name       string
			desc       string
			priceCents int
		}{
			{starters.ID, "Bruschetta", "Grilled bread, tomato, basil", 650},
			{starters.ID, "Caprese", "Mozzarella, tomato, olive oil", 850},
			{mains.ID, "Margherita", "Tomato, mozzarella, basil", 1150},
			{mains.ID, "Diavola", "Spicy salami, chili oil", 1350},
			{mains.ID, "Carbonara", "Guanciale, pecorino, egg", 1250},
			{drinks.ID, "Espresso", "", 250},
			{drinks.ID, "House Red", "Glass of Montepulciano", 550},
		}
		for _, it := range items {
			cat := it.category
			if _, err := menus.CreateMenu(admin.ID, menu.MenuInput{
				CategoryID:  &cat,
				Name:        it.name,
				Description: it.desc,
				PriceCents:  it.priceCents,
			}); err != nil {
				return fmt.Errorf("failed to seed menu %q: %w", it.name, err)
			}
		}

		fmt.Println("Seeded demo restaurant:")
		fmt.Println("  email:    demo@tably.dev")
		fmt.Println("  password: demo-password")

		tables := table.NewStore(database)
		for i := 1; i <= 4; i++ {
			t, err := tables.Create(admin.ID, fmt.Sprintf("Table %d", i), "")
			if err != nil {
				return fmt.Errorf("failed to seed table: %w", err)
			}
			fmt.Printf("  %s: %s\n", t.Name, t.Code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("db", "tably.db", "Path to database file")
}
