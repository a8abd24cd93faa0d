package utils

import (
	"time"

	"fyers-trader/internal/models"
)

// IndiaLocation is the IST timezone used for market hours and expiry
// calendar arithmetic.
var IndiaLocation = mustLoadIST()

func mustLoadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fall back to a fixed offset when the tz database is unavailable
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// Market session boundaries (IST, minutes from midnight).
const (
	preOpenStart  = 9 * 60
	marketOpen    = 9*60 + 15
	marketClose   = 15*60 + 30
	postCloseEnd  = 16 * 60
)

// GetMarketStatus returns the NSE equity market session for a point in
// time. Weekends report closed; exchange holidays are not tracked.
func GetMarketStatus(t time.Time) models.MarketStatus {
	ist := t.In(IndiaLocation)

	switch ist.Weekday() {
	case time.Saturday, time.Sunday:
		return models.MarketClosed
	}

	minutes := ist.Hour()*60 + ist.Minute()
	switch {
	case minutes >= preOpenStart && minutes < marketOpen:
		return models.MarketPreOpen
	case minutes >= marketOpen && minutes < marketClose:
		return models.MarketOpen
	case minutes >= marketClose && minutes < postCloseEnd:
		return models.MarketPostClose
	default:
		return models.MarketClosed
	}
}

// IsMarketOpen reports whether the market is in its regular session.
func IsMarketOpen(t time.Time) bool {
	return GetMarketStatus(t) == models.MarketOpen
}

// NextMarketOpen returns the next regular session open after t.
func NextMarketOpen(t time.Time) time.Time {
	ist := t.In(IndiaLocation)
	open := time.Date(ist.Year(), ist.Month(), ist.Day(), 9, 15, 0, 0, IndiaLocation)
	if !ist.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	for open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
	}
	return open
}
