// ABOUTME: CLI commands for shoe mileage tracking.
// ABOUTME: Supports add, list, and retire subcommands.
package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harperreed/runlog/internal/analytics"
	"github.com/harperreed/runlog/internal/models"
	"github.com/spf13/cobra"
)

// shoeWarnKm is the mileage at which a shoe is flagged as worn.
const shoeWarnKm = 700

var (
	shoeNickname  string
	shoePurchased string
	shoeListAll   bool
)

var shoeCmd = &cobra.Command{
	Use:     "shoe",
	Aliases: []string{"shoes"},
	Short:   "Track shoe mileage",
	Long: `Track how far you have run in each pair of shoes.

Pass --shoe <id> to 'runlog add' to count a run toward a shoe. Deleting the
run takes its distance off again. Retired shoes keep their mileage but can
no longer be used for new runs.

EXAMPLES:

  runlog shoe add Nike Pegasus --nickname daily
  runlog shoe list
  runlog shoe retire abc12345`,
}

var shoeAddCmd = &cobra.Command{
	Use:   "add <brand> <model>",
	Short: "Add a shoe",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		shoe := models.NewShoe(userID, args[0], args[1])
		if shoeNickname != "" {
			shoe.WithNickname(shoeNickname)
		}
		if shoePurchased != "" {
			d, err := analytics.ParseDay(shoePurchased, trk.Today())
			if err != nil {
				return err
			}
			shoe.WithPurchaseDate(d)
		}

		if err := trk.AddShoe(cmd.Context(), shoe); err != nil {
			return fmt.Errorf("failed to add shoe: %w", err)
		}

		color.Green("✓ Added %s", shoe.DisplayName())
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(shoe.ID.String()[:8]))
		return nil
	},
}

var shoeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List shoes by mileage",
	RunE: func(cmd *cobra.Command, args []string) error {
		shoes, err := trk.Shoes(cmd.Context(), userID, shoeListAll)
		if err != nil {
			return fmt.Errorf("failed to list shoes: %w", err)
		}
		if len(shoes) == 0 {
			fmt.Println("No shoes found.")
			return nil
		}
		printShoes(shoes)
		return nil
	},
}

var shoeRetireCmd = &cobra.Command{
	Use:   "retire <id>",
	Short: "Retire a shoe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shoe, err := trk.RetireShoe(cmd.Context(), userID, args[0])
		if err != nil {
			return fmt.Errorf("failed to retire shoe %s: %w", args[0], err)
		}
		color.Yellow("✗ Retired %s after %s km", shoe.DisplayName(), humanize.FormatFloat("#,###.#", shoe.TotalDistanceKm))
		return nil
	},
}

func init() {
	shoeAddCmd.Flags().StringVar(&shoeNickname, "nickname", "", "short name for the shoe")
	shoeAddCmd.Flags().StringVar(&shoePurchased, "purchased", "", "purchase date (YYYY-MM-DD)")
	shoeListCmd.Flags().BoolVarP(&shoeListAll, "all", "a", false, "include retired shoes")

	shoeCmd.AddCommand(shoeAddCmd)
	shoeCmd.AddCommand(shoeListCmd)
	shoeCmd.AddCommand(shoeRetireCmd)
	rootCmd.AddCommand(shoeCmd)
}

func printShoes(shoes []*models.Shoe) {
	faint := color.New(color.Faint)
	for _, s := range shoes {
		km := padLeft(humanize.FormatFloat("#,###.#", s.TotalDistanceKm)+" km", 10)
		status := ""
		switch {
		case s.Retired:
			status = faint.Sprint(" retired")
		case s.TotalDistanceKm >= shoeWarnKm:
			status = color.YellowString(" worn")
		}
		fmt.Printf("  %s %s %s%s\n",
			faint.Sprint(s.ID.String()[:8]),
			padRight(s.DisplayName(), 24),
			km,
			status)
	}
}
