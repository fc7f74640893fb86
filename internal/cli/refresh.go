package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run a single price refresh batch and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		processed, err := getApp().RunBatch(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "processed %d observations\n", processed)
		return nil
	},
}
