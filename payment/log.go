package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OperationLogger records every processor-facing operation: the request that
// went out, and either the response or the classified error that came back.
// Logging failures must never fail the payment operation itself.
type OperationLogger interface {
	LogRequest(ctx context.Context, operation, paymentID string, request any) (int64, error)
	LogResponse(ctx context.Context, logID int64, response any, processingMs int64) error
	LogError(ctx context.Context, logID int64, errorCode, errorMsg string, processingMs int64) error
}

// SQLiteOperationLogger implements OperationLogger on a local SQLite file.
type SQLiteOperationLogger struct {
	db *sql.DB
}

const operationLogSchema = `
CREATE TABLE IF NOT EXISTS operation_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	operation TEXT NOT NULL,
	payment_id TEXT,
	request TEXT,
	response TEXT,
	error_code TEXT,
	error_message TEXT,
	processing_ms INTEGER,
	request_at DATETIME NOT NULL,
	response_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_operation_logs_payment_id ON operation_logs(payment_id);
`

// NewSQLiteOperationLogger opens (or creates) the log database at path.
// ":memory:" gives an ephemeral store for tests.
func NewSQLiteOperationLogger(path string) (*SQLiteOperationLogger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open operation log db: %w", err)
	}
	if _, err := db.Exec(operationLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create operation log schema: %w", err)
	}
	return &SQLiteOperationLogger{db: db}, nil
}

// Close releases the underlying database handle.
func (l *SQLiteOperationLogger) Close() error {
	return l.db.Close()
}

// LogRequest stores the outbound request and returns the row id for the
// follow-up response or error entry.
func (l *SQLiteOperationLogger) LogRequest(ctx context.Context, operation, paymentID string, request any) (int64, error) {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := l.db.ExecContext(ctx,
		`INSERT INTO operation_logs (operation, payment_id, request, request_at) VALUES (?, ?, ?, ?)`,
		operation, paymentID, string(requestJSON), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to log request: %w", err)
	}
	return result.LastInsertId()
}

// LogResponse completes a log row with the processor's response.
func (l *SQLiteOperationLogger) LogResponse(ctx context.Context, logID int64, response any, processingMs int64) error {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`UPDATE operation_logs SET response = ?, processing_ms = ?, response_at = ? WHERE id = ?`,
		string(responseJSON), processingMs, time.Now().UTC(), logID,
	)
	if err != nil {
		return fmt.Errorf("failed to log response: %w", err)
	}
	return nil
}

// LogError completes a log row with a classified failure.
func (l *SQLiteOperationLogger) LogError(ctx context.Context, logID int64, errorCode, errorMsg string, processingMs int64) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE operation_logs SET error_code = ?, error_message = ?, processing_ms = ?, response_at = ? WHERE id = ?`,
		errorCode, errorMsg, processingMs, time.Now().UTC(), logID,
	)
	if err != nil {
		return fmt.Errorf("failed to log error: %w", err)
	}
	return nil
}

// NopOperationLogger discards all entries. Used when operation logging is
// disabled.
type NopOperationLogger struct{}

func (NopOperationLogger) LogRequest(context.Context, string, string, any) (int64, error) {
	return 0, nil
}

func (NopOperationLogger) LogResponse(context.Context, int64, any, int64) error { return nil }

func (NopOperationLogger) LogError(context.Context, int64, string, string, int64) error { return nil }
