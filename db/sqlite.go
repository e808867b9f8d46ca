package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"churnguard/ml"

	_ "github.com/mattn/go-sqlite3"
)

// PredictionLog is an append-only record of verdicts. It stores the outcome of
// each prediction and never the feature vector that produced it.
type PredictionLog struct {
	db *sql.DB
}

// Prediction is one logged verdict.
type Prediction struct {
	ID             int64       `json:"id"`
	Churn          bool        `json:"churn"`
	Label          int         `json:"label"`
	Probability    float64     `json:"probability"`
	HasProbability bool        `json:"has_probability"`
	Strategy       ml.Strategy `json:"strategy"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Open creates or opens the SQLite database at path.
func Open(path string) (*PredictionLog, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        churn INTEGER NOT NULL,
        label INTEGER NOT NULL,
        probability REAL DEFAULT 0,
        has_probability INTEGER NOT NULL DEFAULT 0,
        strategy TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &PredictionLog{db: database}, nil
}

// Close releases the database.
func (l *PredictionLog) Close() error {
	return l.db.Close()
}

// SavePrediction appends one verdict.
func (l *PredictionLog) SavePrediction(ctx context.Context, verdict *ml.Verdict) error {
	if verdict == nil {
		return errors.New("verdict required")
	}
	_, err := l.db.ExecContext(ctx, `
        INSERT INTO predictions (churn, label, probability, has_probability, strategy, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		verdict.Churn, verdict.Label, verdict.Probability, verdict.HasProbability,
		string(verdict.Strategy), time.Now().UTC())
	return err
}

// RecentPredictions returns up to limit verdicts, newest first.
func (l *PredictionLog) RecentPredictions(ctx context.Context, limit int) ([]Prediction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
        SELECT id, churn, label, probability, has_probability, strategy, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]Prediction, 0)
	for rows.Next() {
		var (
			p        Prediction
			strategy string
		)
		if err := rows.Scan(&p.ID, &p.Churn, &p.Label, &p.Probability, &p.HasProbability, &strategy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Strategy = ml.Strategy(strategy)
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// ChurnRate is the share of logged verdicts that predicted churn.
func (l *PredictionLog) ChurnRate(ctx context.Context) (total int, rate float64, err error) {
	var churned sql.NullInt64
	err = l.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(churn) FROM predictions`).Scan(&total, &churned)
	if err != nil || total == 0 {
		return total, 0, err
	}
	return total, float64(churned.Int64) / float64(total), nil
}
