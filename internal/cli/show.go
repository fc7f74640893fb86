package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"price-notifier/internal/app"
)

var (
	showID    int64
	showOwner string
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display an observation's recent price samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			ObservationID: showID,
			OwnerEmail:    showOwner,
			Limit:         showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().Int64Var(&showID, "id", 0, "Observation id")
	showCmd.Flags().StringVar(&showOwner, "owner", "", "Owner email the observation belongs to")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of samples to display")
}
