package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fyers-trader/internal/models"
	"fyers-trader/pkg/utils"
)

// addTradingCommands adds order, funds and quote commands.
func addTradingCommands(rootCmd *cobra.Command, app *App) {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Order placement and inspection",
	}
	orderCmd.AddCommand(newOrderPlaceCmd(app))
	orderCmd.AddCommand(newOrderListCmd(app))
	orderCmd.AddCommand(newOrderShowCmd(app))

	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(newFundsCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
}

func newOrderPlaceCmd(app *App) *cobra.Command {
	var (
		exchange    string
		side        string
		kind        string
		qty         int
		price       float64
		instrType   string
		strikeFlag  string
		rightFlag   string
		expiryClass string
	)

	cmd := &cobra.Command{
		Use:   "place <symbol>",
		Short: "Place an order and wait for its terminal state",
		Long: `Place an order for an underlying symbol. The instrument is resolved
through the catalog, submitted, and polled to a terminal state
(filled, rejected, cancelled or timed out). In paper mode the order
fills immediately without touching the broker.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.loadCatalog(cmd.Context()); err != nil {
				return err
			}

			orderSide := models.OrderSide(strings.ToUpper(side))
			if orderSide != models.OrderSideBuy && orderSide != models.OrderSideSell {
				return fmt.Errorf("invalid side %q (must be buy or sell)", side)
			}
			orderKind := models.OrderKind(strings.ToUpper(kind))
			if orderKind != models.OrderKindLimit && orderKind != models.OrderKindMarket {
				return fmt.Errorf("invalid kind %q (must be limit or market)", kind)
			}
			if orderKind == models.OrderKindLimit && price <= 0 {
				return fmt.Errorf("limit orders need a positive --price")
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

			order, err := app.driver().Execute(cmd.Context(), intent, orderSide, orderKind, qty, price)
			if order != nil {
				printOrder(output, order)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&exchange, "exchange", "e", "NSE", "exchange (NSE, BSE, NFO, MCX, BFO)")
	cmd.Flags().StringVarP(&side, "side", "s", "buy", "order side (buy or sell)")
	cmd.Flags().StringVarP(&kind, "kind", "k", "limit", "order kind (limit or market)")
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "quantity")
	cmd.Flags().Float64VarP(&price, "price", "p", 0, "limit price")
	cmd.Flags().StringVarP(&instrType, "type", "t", "", "derivative instrument type (FUTIDX, OPTIDX, ...)")
	cmd.Flags().StringVar(&strikeFlag, "strike", "", "option strike price")
	cmd.Flags().StringVar(&rightFlag, "right", "", "option right (CE or PE)")
	cmd.Flags().StringVar(&expiryClass, "expiry", "W", "expiry class (W, NW, M, NM, NNM)")

	return cmd
}

func newOrderListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("order journal unavailable")
			}

			orders, err := app.Store.ListOrders(limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(orders)
			}
			if len(orders) == 0 {
				output.Dim("No orders journaled")
				return nil
			}
			for i := range orders {
				printOrder(output, &orders[i])
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum orders to list")
	return cmd
}

func newOrderShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show a journaled order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("order journal unavailable")
			}

			order, err := app.Store.GetOrder(args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(order)
			}
			printOrder(output, order)
			return nil
		},
	}
}

func newFundsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "funds",
		Short: "Show available funds",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			funds, err := app.Broker.GetFunds(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(funds)
			}
			for _, f := range funds {
				label := f.Title
				if f.ID == models.EquityFundID {
					label += " (equity)"
				}
				output.Printf("  %-28s %s\n", label, utils.FormatIndianCurrency(f.EquityAmount))
			}
			return nil
		},
	}
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <ticker>...",
		Short: "Fetch last-traded prices",
		Long:  "Fetch LTP quotes for one or more symbol tickers (e.g. NSE:SBIN-EQ).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			quotes, err := app.Broker.GetQuotes(cmd.Context(), args)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(quotes)
			}
			for _, ticker := range args {
				q, ok := quotes[ticker]
				if !ok {
					output.Warning("  %-24s no quote", ticker)
					continue
				}
				output.Printf("  %-24s %s\n", ticker, utils.FormatIndianCurrency(q.LTP))
			}
			return nil
		},
	}
}

func printOrder(output *Output, order *models.Order) {
	if output.IsJSON() {
		output.JSON(order)
		return
	}

	output.Bold("%s %s x%d %s", order.Side, order.Symbol, order.Quantity, order.Kind)
	output.Printf("  ID:       %s\n", order.ID)
	output.Printf("  Product:  %s\n", order.Product)
	statusLine := fmt.Sprintf("  Status:   %s", order.Status)
	switch order.Status {
	case models.OrderFilled:
		output.Success("%s", statusLine)
		output.Printf("  Filled:   %d @ %s\n", order.FilledQty, utils.FormatIndianCurrency(order.AveragePrice))
	case models.OrderRejected:
		output.Error("%s", statusLine)
	default:
		output.Printf("%s\n", statusLine)
	}
	if order.Message != "" {
		output.Dim("  %s", order.Message)
	}
}
