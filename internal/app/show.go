package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints an observation's most recent price samples.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.ObservationID <= 0 {
		return errors.New("--id must be provided")
	}
	if opts.OwnerEmail == "" {
		return errors.New("--owner must be provided")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	obs, err := store.GetByIDAndOwner(ctx, opts.ObservationID, opts.OwnerEmail)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s\n%s\n", obs.Name, obs.URL)
	if len(obs.History) == 0 {
		fmt.Fprintln(os.Stdout, "no samples recorded yet")
		return nil
	}

	samples := obs.History
	if opts.Limit > 0 && len(samples) > opts.Limit {
		samples = samples[len(samples)-opts.Limit:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Checked (UTC)\tPrice")
	for _, sample := range samples {
		fmt.Fprintf(writer, "%s\t%s\n",
			sample.CheckedAt.UTC().Format(time.RFC3339),
			sample.Price.StringFixed(2),
		)
	}
	return writer.Flush()
}
