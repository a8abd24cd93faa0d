// Package store provides sqlite persistence for the order journal.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fyers-trader/internal/errors"
	"fyers-trader/internal/models"
)

// Store persists every submission and its terminal outcome.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the journal database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, "creating data directory")
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, "opening database")
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id            TEXT PRIMARY KEY,
		symbol        TEXT NOT NULL,
		token         TEXT,
		exchange      TEXT NOT NULL,
		side          TEXT NOT NULL,
		kind          TEXT NOT NULL,
		product       TEXT NOT NULL,
		quantity      INTEGER NOT NULL,
		limit_price   REAL,
		status        TEXT NOT NULL,
		filled_qty    INTEGER DEFAULT 0,
		average_price REAL DEFAULT 0,
		message       TEXT,
		is_paper      INTEGER DEFAULT 0,
		placed_at     TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_placed_at ON orders(placed_at);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(errors.ErrDatabaseError, "creating schema")
	}
	return nil
}

// SaveOrder inserts or replaces an order row.
func (s *Store) SaveOrder(o *models.Order) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO orders
		(id, symbol, token, exchange, side, kind, product, quantity,
		 limit_price, status, filled_qty, average_price, message, is_paper, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Symbol, o.Token, string(o.Exchange), string(o.Side), string(o.Kind),
		string(o.Product), o.Quantity, o.LimitPrice, string(o.Status),
		o.FilledQty, o.AveragePrice, o.Message, boolToInt(o.IsPaper), o.PlacedAt)
	if err != nil {
		return errors.Wrapf(errors.ErrDatabaseError, "saving order %s", o.ID)
	}
	return nil
}

// UpdateOutcome records the terminal state of an order.
func (s *Store) UpdateOutcome(id string, status models.OrderStatus, filledQty int, avgPrice float64, message string) error {
	res, err := s.db.Exec(`
		UPDATE orders SET status = ?, filled_qty = ?, average_price = ?, message = ?
		WHERE id = ?`,
		string(status), filledQty, avgPrice, message, id)
	if err != nil {
		return errors.Wrapf(errors.ErrDatabaseError, "updating order %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s not in journal", id)
	}
	return nil
}

// GetOrder fetches one journaled order.
func (s *Store) GetOrder(id string) (*models.Order, error) {
	row := s.db.QueryRow(`
		SELECT id, symbol, token, exchange, side, kind, product, quantity,
		       limit_price, status, filled_qty, average_price, message, is_paper, placed_at
		FROM orders WHERE id = ?`, id)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "order %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabaseError, "reading order %s", id)
	}
	return o, nil
}

// ListOrders returns the most recent journaled orders.
func (s *Store) ListOrders(limit int) ([]models.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, symbol, token, exchange, side, kind, product, quantity,
		       limit_price, status, filled_qty, average_price, message, is_paper, placed_at
		FROM orders ORDER BY placed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabaseError, "listing orders")
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabaseError, "scanning order row")
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scannable) (*models.Order, error) {
	var o models.Order
	var exchange, side, kind, product, status string
	var isPaper int
	var placedAt time.Time

	err := row.Scan(&o.ID, &o.Symbol, &o.Token, &exchange, &side, &kind, &product,
		&o.Quantity, &o.LimitPrice, &status, &o.FilledQty, &o.AveragePrice,
		&o.Message, &isPaper, &placedAt)
	if err != nil {
		return nil, err
	}

	o.Exchange = models.Exchange(exchange)
	o.Side = models.OrderSide(side)
	o.Kind = models.OrderKind(kind)
	o.Product = models.ProductType(product)
	o.Status = models.OrderStatus(status)
	o.IsPaper = isPaper != 0
	o.PlacedAt = placedAt
	return &o, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
