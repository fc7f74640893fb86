package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"price-notifier/internal/notify"
)

// SimulateDrop pushes a synthetic price-drop event through the configured
// queue backend. Useful for verifying broker connectivity end to end.
func (a *App) SimulateDrop(ctx context.Context, to, productName string, oldPrice, newPrice decimal.Decimal) error {
	dispatcher, closeDispatcher, err := a.newDispatcher(ctx)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	event := notify.Event{
		To:      to,
		Subject: "Price Drop Alert!",
		Body:    fmt.Sprintf("Price for %s dropped from %s to %s", productName, oldPrice, newPrice),
	}
	if err := dispatcher.Send(ctx, event); err != nil {
		return err
	}

	a.Logger.Info().Str("to", to).Msg("simulated notification submitted")
	return nil
}
