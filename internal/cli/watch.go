package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fyers-trader/internal/models"
	"fyers-trader/internal/stream"
	"fyers-trader/pkg/utils"
)

// newWatchCmd streams live LTPs over the data socket until interrupted.
func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <ticker>...",
		Short: "Stream live prices",
		Long:  "Stream last-traded prices for symbol tickers (e.g. NSE:SBIN-EQ) until interrupted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			ticker := app.Fyers.NewTicker()
			hub := stream.NewHubWithTicker(ticker)
			if err := hub.Start(ctx); err != nil {
				return err
			}
			defer hub.Stop()

			channels := make([]<-chan models.Tick, 0, len(args))
			for _, symbol := range args {
				channels = append(channels, hub.Subscribe(symbol))
			}

			merged := make(chan models.Tick, 100)
			for _, ch := range channels {
				go func(ch <-chan models.Tick) {
					for tick := range ch {
						merged <- tick
					}
				}(ch)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			output.Info("Streaming %d symbols, Ctrl-C to stop", len(args))
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-sigCh:
					return nil
				case tick := <-merged:
					output.Printf("%-24s %s\n", tick.Symbol, utils.FormatIndianCurrency(tick.LTP))
				}
			}
		},
	}
}
