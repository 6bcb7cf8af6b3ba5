package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// PricePoint is a single cached daily close.
type PricePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// FetchRecord tracks when a symbol's history was last fetched from
// the upstream source and what range the fetch covered.
type FetchRecord struct {
	Symbol    string
	StartDate string
	EndDate   string
	FetchedAt time.Time
}

// CacheStats summarizes cache contents for monitoring.
type CacheStats struct {
	Symbols int `json:"symbols"`
	Rows    int `json:"rows"`
}

// CacheRepository stores daily closing prices in SQLite so repeated
// optimizations do not hammer the upstream API.
type CacheRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCacheRepository creates a new price cache repository.
func NewCacheRepository(db *sql.DB, log zerolog.Logger) *CacheRepository {
	return &CacheRepository{
		db:  db,
		log: log.With().Str("component", "price_cache").Logger(),
	}
}

// GetPrices returns cached prices for a symbol inside [start, end],
// ordered by date ascending.
func (r *CacheRepository) GetPrices(symbol string, start, end time.Time) ([]PricePoint, error) {
	query := `
		SELECT date, close
		FROM prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := r.db.Query(query, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return points, nil
}

// UpsertPrices inserts or replaces daily prices for a symbol in a
// single transaction.
func (r *CacheRepository) UpsertPrices(symbol string, points []PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO prices (symbol, date, close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(symbol, p.Date, p.Close); err != nil {
			return fmt.Errorf("failed to insert price for %s: %w", p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Debug().
		Str("symbol", symbol).
		Int("count", len(points)).
		Msg("Cached prices")

	return nil
}

// LastFetch returns the fetch record for a symbol, or nil when it was
// never fetched.
func (r *CacheRepository) LastFetch(symbol string) (*FetchRecord, error) {
	query := `
		SELECT symbol, start_date, end_date, fetched_at
		FROM price_fetches
		WHERE symbol = ?
	`

	var rec FetchRecord
	var fetchedAt string
	err := r.db.QueryRow(query, symbol).Scan(&rec.Symbol, &rec.StartDate, &rec.EndDate, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch record: %w", err)
	}

	rec.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fetched_at for %s: %w", symbol, err)
	}

	return &rec, nil
}

// MarkFetched records that a symbol's history covering [start, end]
// was fetched now.
func (r *CacheRepository) MarkFetched(symbol string, start, end time.Time) error {
	query := `
		INSERT OR REPLACE INTO price_fetches (symbol, start_date, end_date, fetched_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		symbol,
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to mark fetch: %w", err)
	}
	return nil
}

// StaleSymbols returns symbols whose last fetch is older than the
// cutoff, ordered oldest first.
func (r *CacheRepository) StaleSymbols(cutoff time.Time) ([]string, error) {
	query := `
		SELECT symbol
		FROM price_fetches
		WHERE fetched_at < ?
		ORDER BY fetched_at ASC
	`

	rows, err := r.db.Query(query, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to query stale symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale symbols: %w", err)
	}

	return symbols, nil
}

// Stats returns cache size counters.
func (r *CacheRepository) Stats() (CacheStats, error) {
	var stats CacheStats

	err := r.db.QueryRow(`SELECT COUNT(DISTINCT symbol), COUNT(*) FROM prices`).Scan(&stats.Symbols, &stats.Rows)
	if err != nil {
		return stats, fmt.Errorf("failed to query cache stats: %w", err)
	}

	return stats, nil
}
