package optimization

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Run kinds stored in the history table.
const (
	RunKindOptimize = "optimize"
	RunKindFrontier = "frontier"
)

// RunRecord is one recorded optimization or frontier run.
type RunRecord struct {
	ID             string             `json:"id"`
	Kind           string             `json:"kind"`
	Method         string             `json:"method"`
	Tickers        []string           `json:"tickers"`
	ExpectedReturn float64            `json:"expected_return"`
	Risk           float64            `json:"expected_risk"`
	Sharpe         float64            `json:"sharpe_ratio"`
	Success        bool               `json:"success"`
	Message        string             `json:"message"`
	Weights        map[string]float64 `json:"weights,omitempty"`
	Points         int                `json:"points,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// HistoryRepository persists run records. Weight maps are stored as
// msgpack blobs; everything queryable stays in plain columns.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a run history repository.
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("component", "optimization_history").Logger(),
	}
}

// Record inserts a run. A fresh uuid and timestamp are assigned when
// absent.
func (r *HistoryRepository) Record(rec RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var weightsBlob []byte
	if len(rec.Weights) > 0 {
		blob, err := msgpack.Marshal(rec.Weights)
		if err != nil {
			return fmt.Errorf("failed to encode weights: %w", err)
		}
		weightsBlob = blob
	}

	_, err := r.db.Exec(`
		INSERT INTO optimization_runs
			(uuid, kind, method, tickers, expected_return, expected_risk,
			 sharpe_ratio, success, message, weights, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Method, strings.Join(rec.Tickers, ","),
		rec.ExpectedReturn, rec.Risk, rec.Sharpe, boolToInt(rec.Success),
		rec.Message, weightsBlob, rec.Points, rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// ListRecent returns up to limit runs, newest first.
func (r *HistoryRepository) ListRecent(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT uuid, kind, method, tickers, expected_return, expected_risk,
		       sharpe_ratio, success, message, weights, points, created_at
		FROM optimization_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0, limit)
	for rows.Next() {
		var rec RunRecord
		var tickers, createdAt string
		var success int
		var weightsBlob []byte

		err := rows.Scan(
			&rec.ID, &rec.Kind, &rec.Method, &tickers,
			&rec.ExpectedReturn, &rec.Risk, &rec.Sharpe,
			&success, &rec.Message, &weightsBlob, &rec.Points, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.Success = success == 1
		if tickers != "" {
			rec.Tickers = strings.Split(tickers, ",")
		}
		if len(weightsBlob) > 0 {
			if err := msgpack.Unmarshal(weightsBlob, &rec.Weights); err != nil {
				r.log.Warn().Err(err).Str("uuid", rec.ID).Msg("Failed to decode weights blob")
			}
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the total number of recorded runs.
func (r *HistoryRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM optimization_runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes runs created before cutoff and returns the
// number deleted.
func (r *HistoryRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM optimization_runs WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
