package cli

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fyers-trader/internal/models"
)

// addInstrumentCommands adds instrument catalog commands.
func addInstrumentCommands(rootCmd *cobra.Command, app *App) {
	instCmd := &cobra.Command{
		Use:   "instruments",
		Short: "Instrument catalog operations",
		Long:  "Download the Fyers symbol master and resolve instruments against it.",
	}

	instCmd.AddCommand(newInstrumentsDownloadCmd(app))
	instCmd.AddCommand(newInstrumentsResolveCmd(app))
	instCmd.AddCommand(newInstrumentsInfoCmd(app))

	rootCmd.AddCommand(instCmd)
}

func newInstrumentsDownloadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download a fresh symbol master snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			records, err := app.Snapshot.Download(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Snapshot.SaveCache(records); err != nil {
				return err
			}
			if err := app.Catalog.Load(records); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]int{"instruments": len(records)})
			}
			output.Success("Downloaded %d instruments", len(records))
			return nil
		},
	}
}

func newInstrumentsResolveCmd(app *App) *cobra.Command {
	var (
		exchange    string
		instrType   string
		strikeFlag  string
		rightFlag   string
		expiryClass string
	)

	cmd := &cobra.Command{
		Use:   "resolve <symbol>",
		Short: "Resolve a symbol to a tradable instrument",
		Long: `Resolve an underlying symbol to its scrip token, symbol ticker and
lot size. Cash equities need only the exchange; derivatives take an
instrument type (FUTIDX, OPTIDX, ...), an expiry class (W, NW, M, NM,
NNM) and, for options, a strike and right (CE/PE).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadCatalog(cmd.Context()); err != nil {
				return err
			}

			intent := models.TradeIntent{
				Exchange:       models.Exchange(strings.ToUpper(exchange)),
				Symbol:         args[0],
				InstrumentType: instrType,
				ExpiryClass:    models.ExpiryClass(strings.ToUpper(expiryClass)),
				Right:          models.OptionRight(strings.ToUpper(rightFlag)),
			}
			if strikeFlag != "" {
				strike, err := decimal.NewFromString(strikeFlag)
				if err != nil {
					return err
				}
				intent.Strike = strike
			}

			inst, err := app.Catalog.Resolve(intent)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(inst)
			}
			output.Bold("%s", inst.Symbol)
			output.Printf("  Token:    %s\n", inst.Token)
			output.Printf("  Lot Size: %d\n", inst.LotSize)
			output.Printf("  Exchange: %s\n", inst.Exchange)
			return nil
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "NSE", "exchange (NSE, BSE, NFO, MCX, BFO)")
	cmd.Flags().StringVarP(&instrType, "type", "t", "", "derivative instrument type (FUTIDX, OPTIDX, ...)")
	cmd.Flags().StringVar(&strikeFlag, "strike", "", "option strike price")
	cmd.Flags().StringVar(&rightFlag, "right", "", "option right (CE or PE)")
	cmd.Flags().StringVar(&expiryClass, "expiry", "W", "expiry class (W, NW, M, NM, NNM)")

	return cmd
}

func newInstrumentsInfoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <token>",
		Short: "Show all catalog rows for a scrip token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadCatalog(cmd.Context()); err != nil {
				return err
			}

			rows := app.Catalog.ByToken(args[0])
			if len(rows) == 0 {
				output.Warning("No instruments for token %s", args[0])
				return nil
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}
			for _, r := range rows {
				output.Bold("%s", r.SymbolTicker)
				output.Printf("  Underlying: %s\n", r.Underlying)
				output.Printf("  Exchange:   %d\n", r.Exchange)
				output.Printf("  Type:       %d\n", r.InstrType)
				output.Printf("  Lot Size:   %d\n", r.LotSize)
				if r.HasExpiry() {
					output.Printf("  Expiry:     %s\n", r.Expiry().Format(app.Config.UI.DateFormat))
				}
				if !r.Strike.IsZero() {
					output.Printf("  Strike:     %s %s\n", r.Strike.String(), r.Right)
				}
				output.Println()
			}
			return nil
		},
	}
}
