package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// EventLogRepository appends audit events to the event_logs table
// (ClickHouse in production).
type EventLogRepository interface {
	InsertBatch(ctx context.Context, events []model.AuditEvent) error
}

type eventLogRepository struct {
	db *sqlx.DB
}

func NewEventLogRepository(db *sqlx.DB) EventLogRepository {
	return &eventLogRepository{db: db}
}

// InsertBatch uses one prepared statement inside a transaction, which
// clickhouse-go turns into a single native batch.
func (r *eventLogRepository) InsertBatch(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO event_logs (message, source, severity, details, related_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		related := ""
		if ev.RelatedID != nil {
			related = *ev.RelatedID
		}
		if _, err := stmt.ExecContext(ctx,
			ev.Message, ev.Source, string(ev.Severity), string(ev.Details), related, ev.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert event %q: %w", ev.Message, err)
		}
	}

	return tx.Commit()
}
