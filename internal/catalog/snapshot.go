package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fyers-trader/internal/errors"
	"fyers-trader/internal/logging"
	"fyers-trader/internal/models"
	"fyers-trader/pkg/utils"
)

// SymbolMasterURLs are the symbol master CSVs published by Fyers, one
// per exchange segment.
var SymbolMasterURLs = []string{
	"https://public.fyers.in/sym_details/NSE_CD.csv",
	"https://public.fyers.in/sym_details/NSE_FO.csv",
	"https://public.fyers.in/sym_details/NSE_CM.csv",
	"https://public.fyers.in/sym_details/BSE_CM.csv",
	"https://public.fyers.in/sym_details/BSE_FO.csv",
	"https://public.fyers.in/sym_details/MCX_COM.csv",
}

// Column indexes of the fixed 21-column symbol master schema.
const (
	colFyToken = iota
	colDetails
	colInstrType
	colLotSize
	colTickSize
	colISIN
	colTradingSession
	colLastUpdate
	colExpiry
	colSymbolTicker
	colExchange
	colSegment
	colScripCode
	colUnderlying
	colUnderlyingScrip
	colStrike
	colOptionType
	colUnderlyingFyToken
	masterColumns = 21
)

const cacheFileName = "instruments.csv"

// SnapshotLoader downloads and caches the instrument master. The catalog
// never fetches anything itself; callers load a snapshot through this
// collaborator and hand the records to Catalog.Load.
type SnapshotLoader struct {
	client   *http.Client
	cacheDir string
	logger   zerolog.Logger
}

// NewSnapshotLoader creates a snapshot loader caching under cacheDir.
func NewSnapshotLoader(cacheDir string, logger zerolog.Logger) *SnapshotLoader {
	return &SnapshotLoader{
		client:   &http.Client{Timeout: 30 * time.Second},
		cacheDir: cacheDir,
		logger:   logger,
	}
}

// Download fetches every symbol master segment and merges the rows in
// source order. Individual segment failures are logged and tolerated;
// only a fully failed download reports ErrDataUnavailable.
func (l *SnapshotLoader) Download(ctx context.Context) ([]models.InstrumentRecord, error) {
	var all []models.InstrumentRecord
	succeeded := 0

	for _, url := range SymbolMasterURLs {
		records, err := utils.RetryWithResult(ctx, utils.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
		}, func() ([]models.InstrumentRecord, error) {
			return l.fetchSegment(ctx, url)
		})
		if err != nil {
			l.logger.Error().Err(err).Str("url", url).Msg("Symbol master segment download failed")
			continue
		}
		logging.LogSnapshot(l.logger, url, len(records))
		all = append(all, records...)
		succeeded++
	}

	if succeeded == 0 {
		return nil, errors.Wrap(errors.ErrDataUnavailable, "all symbol master downloads failed")
	}
	return all, nil
}

func (l *SnapshotLoader) fetchSegment(ctx context.Context, url string) ([]models.InstrumentRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return parseMaster(resp.Body)
}

// parseMaster reads headerless symbol master rows. Short or malformed
// rows are skipped; the master occasionally carries them.
func parseMaster(r io.Reader) ([]models.InstrumentRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var out []models.InstrumentRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading symbol master: %w", err)
		}
		rec, ok := parseMasterRow(row)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseMasterRow(row []string) (models.InstrumentRecord, bool) {
	if len(row) < colUnderlyingFyToken {
		return models.InstrumentRecord{}, false
	}

	rec := models.InstrumentRecord{
		FyToken:      strings.TrimSpace(row[colFyToken]),
		Description:  strings.TrimSpace(row[colDetails]),
		SymbolTicker: strings.TrimSpace(row[colSymbolTicker]),
		Token:        strings.TrimSpace(row[colScripCode]),
		Underlying:   strings.ToUpper(strings.TrimSpace(row[colUnderlying])),
	}

	rec.InstrType, _ = strconv.Atoi(strings.TrimSpace(row[colInstrType]))
	rec.LotSize, _ = strconv.Atoi(strings.TrimSpace(row[colLotSize]))
	rec.TickSize, _ = strconv.ParseFloat(strings.TrimSpace(row[colTickSize]), 64)
	rec.Exchange, _ = strconv.Atoi(strings.TrimSpace(row[colExchange]))

	// Cash rows carry a placeholder in the expiry column
	rec.ExpiryUnix, _ = strconv.ParseInt(strings.TrimSpace(row[colExpiry]), 10, 64)

	if s, err := decimal.NewFromString(strings.TrimSpace(row[colStrike])); err == nil {
		rec.Strike = s
	}

	right := models.OptionRight(strings.ToUpper(strings.TrimSpace(row[colOptionType])))
	switch right {
	case models.RightCall, models.RightPut:
		rec.Right = right
	default:
		rec.Right = models.RightNone
	}

	if rec.Token == "" || rec.SymbolTicker == "" {
		return models.InstrumentRecord{}, false
	}
	return rec, true
}

// SaveCache writes a merged snapshot to the local cache file.
func (l *SnapshotLoader) SaveCache(records []models.InstrumentRecord) error {
	if err := os.MkdirAll(l.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	f, err := os.Create(l.cachePath())
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// LoadCache reads the locally cached snapshot.
func (l *SnapshotLoader) LoadCache() ([]models.InstrumentRecord, error) {
	f, err := os.Open(l.cachePath())
	if err != nil {
		return nil, errors.Wrap(errors.ErrDataUnavailable, "opening snapshot cache")
	}
	defer f.Close()

	var records []models.InstrumentRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, errors.Wrap(errors.ErrDataUnavailable, "reading snapshot cache")
	}
	return records, nil
}

// CacheAge returns the age of the cached snapshot.
func (l *SnapshotLoader) CacheAge() (time.Duration, error) {
	info, err := os.Stat(l.cachePath())
	if err != nil {
		return 0, errors.Wrap(errors.ErrDataUnavailable, "snapshot cache missing")
	}
	return time.Since(info.ModTime()), nil
}

// Load returns a snapshot, serving the cache while it is younger than
// maxAge and downloading a fresh copy otherwise. A failed refresh falls
// back to a stale cache when one exists.
func (l *SnapshotLoader) Load(ctx context.Context, maxAge time.Duration) ([]models.InstrumentRecord, error) {
	if age, err := l.CacheAge(); err == nil && age < maxAge {
		if records, err := l.LoadCache(); err == nil {
			return records, nil
		}
	}

	records, err := l.Download(ctx)
	if err != nil {
		if cached, cerr := l.LoadCache(); cerr == nil {
			l.logger.Warn().Err(err).Msg("Snapshot refresh failed, serving stale cache")
			return cached, nil
		}
		return nil, err
	}

	if err := l.SaveCache(records); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to persist snapshot cache")
	}
	return records, nil
}

func (l *SnapshotLoader) cachePath() string {
	return filepath.Join(l.cacheDir, cacheFileName)
}
