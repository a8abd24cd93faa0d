// Package catalog resolves trade intents against the Fyers instrument master.
package catalog

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"fyers-trader/internal/errors"
	"fyers-trader/internal/models"
)

// segmentTypes maps derivative instrument-type tags to the numeric codes
// used in the "Exchange Instrument type" column of the symbol master.
var segmentTypes = map[string]int{
	"FUTIDX": 11,
	"FUTIVX": 12,
	"FUTSTK": 13,
	"OPTIDX": 14,
	"OPTSTK": 15,
	"FUTCUR": 16,
	"FUTIRT": 17,
	"FUTIRC": 18,
	"OPTCUR": 19,
	"FUTCOM": 30,
	"OPTFUT": 31,
	"OPTCOM": 32,
}

// futureTags are the instrument-type tags with no strike/right dimension.
var futureTags = map[string]bool{
	"FUTIDX": true,
	"FUTIVX": true,
	"FUTSTK": true,
	"FUTCUR": true,
	"FUTIRT": true,
	"FUTIRC": true,
	"FUTCOM": true,
}

// SegmentType returns the numeric segment code for a derivative
// instrument-type tag. ok is false for unrecognized tags.
func SegmentType(tag string) (code int, ok bool) {
	code, ok = segmentTypes[strings.ToUpper(tag)]
	return code, ok
}

// Catalog answers lookup queries against an in-memory instrument table.
// Load replaces the table wholesale; lookups only ever read it, so a
// single RWMutex suffices.
type Catalog struct {
	mu      sync.RWMutex
	records []models.InstrumentRecord
	byToken map[string][]int
}

// New creates an empty catalog. Lookups against an unloaded catalog
// report not-found.
func New() *Catalog {
	return &Catalog{byToken: make(map[string][]int)}
}

// Load replaces the active table with a new snapshot. It fails with
// ErrDataUnavailable when the snapshot is empty or rows lack the
// required identifying fields; on failure the previous table stays
// active.
func (c *Catalog) Load(records []models.InstrumentRecord) error {
	if len(records) == 0 {
		return errors.Wrap(errors.ErrDataUnavailable, "empty snapshot")
	}

	byToken := make(map[string][]int, len(records))
	for i, r := range records {
		if r.Token == "" || r.SymbolTicker == "" || r.Underlying == "" {
			return errors.Wrapf(errors.ErrDataUnavailable,
				"row %d missing required fields", i)
		}
		byToken[r.Token] = append(byToken[r.Token], i)
	}

	c.mu.Lock()
	c.records = records
	c.byToken = byToken
	c.mu.Unlock()
	return nil
}

// Len returns the number of loaded records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// ResolveEquity resolves a cash-equity symbol to its catalog row.
// Matching is case-insensitive on the underlying symbol; when several
// rows match, the first row in dataset order wins.
func (c *Catalog) ResolveEquity(exchange models.Exchange, symbol string) (*models.ResolvedInstrument, error) {
	code, ok := exchange.Code()
	if !ok {
		return nil, errors.NewLookupError(string(exchange), symbol, "unknown exchange", errors.ErrNotFound)
	}
	symbol = strings.ToUpper(symbol)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.records {
		if r.Exchange != code || r.Underlying != symbol {
			continue
		}
		if !isEquityType(r.InstrType) {
			continue
		}
		return resolved(r, exchange), nil
	}
	return nil, errors.NewLookupError(string(exchange), symbol, "", errors.ErrNotFound)
}

// ResolveDerivative filters the table down to the candidate contract rows
// for a derivative lookup. Future tags return the whole expiry ladder;
// option tags additionally filter by exact strike and right. An
// unrecognized instrument-type tag reports not-found rather than failing.
func (c *Catalog) ResolveDerivative(exchange models.Exchange, symbol, instrumentType string, strike decimal.Decimal, right models.OptionRight) ([]models.InstrumentRecord, error) {
	seg, ok := SegmentType(instrumentType)
	if !ok {
		return nil, errors.NewLookupError(string(exchange), symbol,
			"unrecognized instrument type "+instrumentType, errors.ErrNotFound)
	}
	code, ok := exchange.Code()
	if !ok {
		return nil, errors.NewLookupError(string(exchange), symbol, "unknown exchange", errors.ErrNotFound)
	}
	symbol = strings.ToUpper(symbol)
	isFuture := futureTags[strings.ToUpper(instrumentType)]

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.InstrumentRecord
	for _, r := range c.records {
		if r.Exchange != code || r.Underlying != symbol || r.InstrType != seg {
			continue
		}
		if !isFuture {
			if !r.Strike.Equal(strike) || r.Right != right {
				continue
			}
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, errors.NewLookupError(string(exchange), symbol, "", errors.ErrNotFound)
	}
	return out, nil
}

// Resolve maps a trade intent to a concrete instrument. Derivative
// exchanges go through candidate filtering plus expiry-class selection;
// everything else resolves as cash equity.
func (c *Catalog) Resolve(intent models.TradeIntent) (*models.ResolvedInstrument, error) {
	switch intent.Exchange {
	case models.NFO, models.MCX, models.BFO:
		class := intent.ExpiryClass
		if class == "" {
			class = models.ExpiryNearestWeekly
		}
		candidates, err := c.ResolveDerivative(intent.Exchange, intent.Symbol,
			intent.InstrumentType, intent.Strike, intent.Right)
		if err != nil {
			return nil, err
		}
		row, err := SelectByExpiryClass(candidates, class)
		if err != nil {
			return nil, err
		}
		return resolved(*row, intent.Exchange), nil
	default:
		return c.ResolveEquity(intent.Exchange, intent.Symbol)
	}
}

// ByToken returns all rows sharing a scrip code, in dataset order.
// Tokens are not unique across exchanges in the symbol master.
func (c *Catalog) ByToken(token string) []models.InstrumentRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idxs := c.byToken[token]
	out := make([]models.InstrumentRecord, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, c.records[i])
	}
	return out
}

// TickerForQuote returns the symbol ticker to quote for a token on an
// exchange, narrowing multi-exchange tokens by instrument type the way
// the quote endpoint expects: cash for NSE, index options for NFO/BFO,
// index futures for MCX.
func (c *Catalog) TickerForQuote(exchange models.Exchange, token string) (string, error) {
	rows := c.ByToken(token)
	if len(rows) == 0 {
		return "", errors.NewLookupError(string(exchange), token, "no rows for token", errors.ErrNotFound)
	}

	var want int
	switch exchange {
	case models.NSE:
		want = models.InstrTypeEquity
	case models.NFO, models.BFO:
		want = segmentTypes["OPTIDX"]
	case models.MCX:
		want = segmentTypes["FUTIDX"]
	default:
		return rows[0].SymbolTicker, nil
	}

	for _, r := range rows {
		if r.InstrType == want {
			return r.SymbolTicker, nil
		}
	}
	return "", errors.NewLookupError(string(exchange), token, "no matching instrument type", errors.ErrNotFound)
}

func isEquityType(t int) bool {
	for _, e := range models.EquityInstrTypes {
		if t == e {
			return true
		}
	}
	return false
}

func resolved(r models.InstrumentRecord, exchange models.Exchange) *models.ResolvedInstrument {
	return &models.ResolvedInstrument{
		Token:    r.Token,
		Symbol:   r.SymbolTicker,
		LotSize:  r.LotSize,
		Exchange: exchange,
	}
}
