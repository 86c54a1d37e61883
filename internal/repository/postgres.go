package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"yescity/internal/model"
)

const recommendationLogSchema = `
CREATE TABLE IF NOT EXISTS recommendation_logs (
	request_id         TEXT PRIMARY KEY,
	query              TEXT NOT NULL,
	category           TEXT NOT NULL DEFAULT '',
	city               TEXT,
	parameters         JSONB,
	recommended_ids    JSONB,
	success            BOOLEAN NOT NULL,
	error_message      TEXT,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	clicked_record_id  TEXT,
	action             TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	feedback_at        TIMESTAMPTZ
)`

// ErrLogNotFound is returned when feedback refers to an unknown request
var ErrLogNotFound = errors.New("recommendation log not found")

// PostgresRepository stores the recommendation query log
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the log table when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, recommendationLogSchema); err != nil {
		return fmt.Errorf("failed to create recommendation_logs: %w", err)
	}
	return nil
}

// LogRecommendation records a finished run
func (r *PostgresRepository) LogRecommendation(ctx context.Context, entry *model.RecommendationLog) error {
	query := `
		INSERT INTO recommendation_logs
			(request_id, query, category, city, parameters, recommended_ids, success, error_message, processing_time_ms)
		VALUES
			(:request_id, :query, :category, :city, :parameters, :recommended_ids, :success, :error_message, :processing_time_ms)
		ON CONFLICT (request_id) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to log recommendation: %w", err)
	}
	return nil
}

// LogFeedback attaches a user action to a logged run
func (r *PostgresRepository) LogFeedback(ctx context.Context, requestID, recordID, action string) error {
	query := `
		UPDATE recommendation_logs
		SET clicked_record_id = $2, action = $3, feedback_at = NOW()
		WHERE request_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, requestID, recordID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("request %s: %w", requestID, ErrLogNotFound)
	}
	return nil
}

// GetLog returns the log row for a request, or nil when absent
func (r *PostgresRepository) GetLog(ctx context.Context, requestID string) (*model.RecommendationLog, error) {
	var entry model.RecommendationLog
	query := `
		SELECT request_id, query, category, city, parameters, recommended_ids, success,
			error_message, processing_time_ms, clicked_record_id, action, created_at, feedback_at
		FROM recommendation_logs
		WHERE request_id = $1
	`
	err := r.db.GetContext(ctx, &entry, query, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recommendation log: %w", err)
	}
	return &entry, nil
}
