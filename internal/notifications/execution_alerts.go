package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// AlertForResult renders an execution result as an alert. Conflicts are
// expected under load and produce no alert.
func AlertForResult(res types.ExecutionResult) (level, message string, ok bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* %s %s (%s)\n", res.Status, res.Side, res.Symbol, res.PositionIndex)
	fmt.Fprintf(&b, "Signal: `%s`\n", res.SignalID)

	switch res.Status {
	case types.StatusSubmitted:
		level = LevelSuccess
		if req := res.Request; req != nil {
			fmt.Fprintf(&b, "Qty: %s @ %s\n", req.Quantity, req.EntryPrice)
			if req.StopLoss != nil {
				fmt.Fprintf(&b, "SL: %s\n", req.StopLoss)
			}
			if len(req.TPLevels) > 0 {
				for i, lvl := range req.TPLevels {
					fmt.Fprintf(&b, "TP%d: %s x %s\n", i+1, lvl.Price, lvl.Quantity)
				}
			} else if req.TakeProfit != nil {
				fmt.Fprintf(&b, "TP: %s\n", req.TakeProfit)
			}
		}
		fmt.Fprintf(&b, "Order: `%s`", res.ExchangeOrderID)
		if res.LeverageWarning != "" || len(res.Warnings) > 0 {
			level = LevelWarning
		}
		if res.LeverageWarning != "" {
			fmt.Fprintf(&b, "\nLeverage: %s", res.LeverageWarning)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "\nWarning: %s", w)
		}
	case types.StatusRejected:
		level = LevelWarning
		fmt.Fprintf(&b, "Reason: %s", res.Reason)
	case types.StatusError:
		level = LevelError
		fmt.Fprintf(&b, "Attempts: %d\nReason: %s", res.Attempts, res.Reason)
	default:
		return "", "", false
	}
	return level, b.String(), true
}

// Forward sends an alert for every result received until results is closed
// or ctx ends. Delivery failures are logged and never retried.
func Forward(ctx context.Context, n Notifier, results <-chan types.ExecutionResult, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, open := <-results:
			if !open {
				return
			}
			level, msg, ok := AlertForResult(res)
			if !ok {
				continue
			}
			sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := n.SendAlert(sendCtx, level, msg); err != nil {
				log.Warn().Err(err).Str("signal_id", res.SignalID).Msg("failed to send alert")
			}
			cancel()
		}
	}
}
