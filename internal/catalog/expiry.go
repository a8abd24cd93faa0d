package catalog

import (
	"fyers-trader/internal/errors"
	"fyers-trader/internal/models"
	"fyers-trader/pkg/utils"
)

// SelectByExpiryClass picks one contract row from a candidate ladder.
// Candidates must be in dataset order, which the symbol master keeps
// ascending by expiry per underlying. Weekly selectors index the full
// ladder; monthly selectors index the per-calendar-month subsequence of
// last expiries. An ordinal past the end of the ladder surfaces
// ErrExpiryOutOfRange rather than clamping to the last contract.
func SelectByExpiryClass(candidates []models.InstrumentRecord, class models.ExpiryClass) (*models.InstrumentRecord, error) {
	if !class.Valid() {
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "unknown expiry class %q", class)
	}

	switch class {
	case models.ExpiryNearestWeekly:
		return nthExpiry(candidates, 0, class)
	case models.ExpiryNextWeekly:
		return nthExpiry(candidates, 1, class)
	}

	monthly := monthlyExpiries(candidates)
	switch class {
	case models.ExpiryNearestMonthly:
		return nthExpiry(monthly, 0, class)
	case models.ExpiryNextMonthly:
		return nthExpiry(monthly, 1, class)
	default: // models.ExpiryNextNextMonth
		return nthExpiry(monthly, 2, class)
	}
}

// monthlyExpiries reduces an ascending expiry ladder to the last expiry
// of each calendar month, preserving order. Rows without an expiry are
// skipped.
func monthlyExpiries(candidates []models.InstrumentRecord) []models.InstrumentRecord {
	var out []models.InstrumentRecord
	lastKey := -1

	for _, r := range candidates {
		if !r.HasExpiry() {
			continue
		}
		exp := r.Expiry().In(utils.IndiaLocation)
		key := exp.Year()*100 + int(exp.Month())
		if key == lastKey && len(out) > 0 {
			// Later expiry within the same month supersedes
			out[len(out)-1] = r
			continue
		}
		out = append(out, r)
		lastKey = key
	}
	return out
}

func nthExpiry(rows []models.InstrumentRecord, n int, class models.ExpiryClass) (*models.InstrumentRecord, error) {
	if n >= len(rows) {
		return nil, errors.Wrapf(errors.ErrExpiryOutOfRange,
			"expiry class %s needs %d candidates, have %d", class, n+1, len(rows))
	}
	row := rows[n]
	return &row, nil
}
