package catalog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fyers-trader/internal/models"
)

// masterRow builds one 21-column symbol master line.
func masterRow(fyToken, instrType, expiry, ticker, exchange, scripCode, underlying, strike, right string) string {
	cols := make([]string, masterColumns)
	cols[colFyToken] = fyToken
	cols[colDetails] = underlying + " test row"
	cols[colInstrType] = instrType
	cols[colLotSize] = "50"
	cols[colTickSize] = "0.05"
	cols[colExpiry] = expiry
	cols[colSymbolTicker] = ticker
	cols[colExchange] = exchange
	cols[colScripCode] = scripCode
	cols[colUnderlying] = underlying
	cols[colStrike] = strike
	cols[colOptionType] = right
	return strings.Join(cols, ",")
}

func TestParseMaster(t *testing.T) {
	csv := strings.Join([]string{
		masterRow("101000000101", "0", "0", "NSE:SBIN-EQ", "10", "3045", "SBIN", "-1", "XX"),
		masterRow("101100000301", "14", "1719000000", "NSE:NIFTY24JUN22000CE", "10", "55801", "NIFTY", "22000", "CE"),
		"short,row", // malformed rows are skipped
		masterRow("", "14", "1719000000", "", "10", "", "NIFTY", "22000", "PE"), // missing identifiers
	}, "\n")

	records, err := parseMaster(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parseMaster: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 valid rows", len(records))
	}

	eq := records[0]
	if eq.Token != "3045" || eq.Underlying != "SBIN" || eq.InstrType != 0 || eq.Exchange != 10 {
		t.Errorf("equity row = %+v", eq)
	}
	if eq.Right != models.RightNone {
		t.Errorf("equity right = %s, want XX", eq.Right)
	}

	opt := records[1]
	if opt.Token != "55801" || opt.InstrType != 14 || opt.Right != models.RightCall {
		t.Errorf("option row = %+v", opt)
	}
	if !opt.Strike.Equal(decimal.NewFromInt(22000)) {
		t.Errorf("strike = %s, want 22000", opt.Strike)
	}
	if opt.ExpiryUnix != 1719000000 || !opt.HasExpiry() {
		t.Errorf("expiry = %d", opt.ExpiryUnix)
	}
	if opt.LotSize != 50 {
		t.Errorf("lot size = %d, want 50", opt.LotSize)
	}
}

func TestParseMasterNormalizesRight(t *testing.T) {
	csv := masterRow("1", "11", "1719000000", "NSE:NIFTY24JUNFUT", "10", "35001", "NIFTY", "-1", "garbage")
	records, err := parseMaster(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parseMaster: %v", err)
	}
	if len(records) != 1 || records[0].Right != models.RightNone {
		t.Errorf("unknown option-type flags must normalize to XX, got %+v", records)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader := NewSnapshotLoader(dir, zerolog.Nop())

	records := []models.InstrumentRecord{
		{
			Token: "3045", SymbolTicker: "NSE:SBIN-EQ", Underlying: "SBIN",
			Exchange: 10, InstrType: 0, Right: models.RightNone, LotSize: 1, TickSize: 0.05,
		},
	}
	if err := loader.SaveCache(records); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	loaded, err := loader.LoadCache()
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d cached records, want 1", len(loaded))
	}
	if loaded[0].Token != "3045" || loaded[0].SymbolTicker != "NSE:SBIN-EQ" {
		t.Errorf("cached record = %+v", loaded[0])
	}

	if age, err := loader.CacheAge(); err != nil || age < 0 {
		t.Errorf("CacheAge = %v/%v", age, err)
	}

	if _, err := filepath.Glob(filepath.Join(dir, cacheFileName)); err != nil {
		t.Errorf("cache file lookup: %v", err)
	}
}

func TestLoadCacheMissing(t *testing.T) {
	loader := NewSnapshotLoader(t.TempDir(), zerolog.Nop())
	if _, err := loader.LoadCache(); err == nil {
		t.Error("missing cache must report an error")
	}
	if _, err := loader.CacheAge(); err == nil {
		t.Error("missing cache must have no age")
	}
}
