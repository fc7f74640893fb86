package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateTo       string
	simulateProduct  string
	simulateOldPrice float64
	simulateNewPrice float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-drop",
	Short: "Send a synthetic price-drop notification through the queue backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTo == "" {
			return errors.New("--to must be provided")
		}
		if simulateOldPrice <= 0 || simulateNewPrice <= 0 {
			return errors.New("--old and --new must be greater than 0")
		}

		oldPrice := decimal.NewFromFloat(simulateOldPrice)
		newPrice := decimal.NewFromFloat(simulateNewPrice)
		return getApp().SimulateDrop(cmd.Context(), simulateTo, simulateProduct, oldPrice, newPrice)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateTo, "to", "", "Recipient email")
	simulateCmd.Flags().StringVar(&simulateProduct, "product", "Test Product", "Product name used in the message")
	simulateCmd.Flags().Float64Var(&simulateOldPrice, "old", 0, "Old price")
	simulateCmd.Flags().Float64Var(&simulateNewPrice, "new", 0, "New price")
}
