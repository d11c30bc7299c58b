package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// ErrVersionConflict means another writer finalized or changed the message
// since it was read.
var ErrVersionConflict = errors.New("message version conflict")

// MessagesRepository defines persistence for the messages table.
type MessagesRepository interface {
	// Insert is idempotent on message id.
	Insert(ctx context.Context, m model.Message) error
	Get(ctx context.Context, id string) (*model.Message, error)
	// ListInFlight returns ids of messages created before olderThan that
	// have neither terminal timestamp, least recently polled first.
	ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error)
	// MarkPolled stamps polled_at so the next listing starts with messages
	// that have waited longest.
	MarkPolled(ctx context.Context, ids []string, at time.Time) error
	// Finalize writes status and terminal timestamps if m.Version still
	// matches and the stored row is in flight; otherwise ErrVersionConflict.
	Finalize(ctx context.Context, m model.Message) error
}

type MessagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMessagesRepository(db *sqlx.DB) *MessagesRepositoryImpl {
	return &MessagesRepositoryImpl{db: db}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

const messageColumns = `id, enterprise_host_id, carrier_id, carrier_message_uid,
	recipient, body, status, delivered_at, failed_at, polled_at, version, created_at, updated_at`

func (r *MessagesRepositoryImpl) Insert(ctx context.Context, m model.Message) error {
	existing, err := r.Get(ctx, m.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	const q = `
		INSERT INTO messages
		    (id, enterprise_host_id, carrier_id, carrier_message_uid,
		     recipient, body, status, version, created_at, updated_at)
		VALUES
		    (?,  ?,                  ?,          ?,
		     ?,         ?,    ?,      0,       ?,          ?)
	`
	_, err = r.db.ExecContext(ctx, r.db.Rebind(q),
		m.ID, m.EnterpriseHostID, m.CarrierID, m.CarrierMessageUID,
		m.Recipient, m.Body, m.Status, m.CreatedAt.UTC(), now,
	)
	return err
}

// Get returns (nil, nil) when the message does not exist.
func (r *MessagesRepositoryImpl) Get(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := r.db.GetContext(ctx, &m, r.db.Rebind(`SELECT `+messageColumns+` FROM messages WHERE id = ? LIMIT 1`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessagesRepositoryImpl) ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var ids []string
	err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`
		SELECT id
		  FROM messages
		 WHERE delivered_at IS NULL AND failed_at IS NULL
		   AND carrier_message_uid <> ''
		   AND created_at <= ?
		 ORDER BY COALESCE(polled_at, created_at) ASC, id ASC
		 LIMIT ?
	`), olderThan.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *MessagesRepositoryImpl) MarkPolled(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`UPDATE messages SET polled_at = ? WHERE id IN (?)`, at.UTC(), ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	return err
}

func (r *MessagesRepositoryImpl) Finalize(ctx context.Context, m model.Message) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE messages
		   SET status = ?, delivered_at = ?, failed_at = ?,
		       version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?
		   AND delivered_at IS NULL AND failed_at IS NULL
	`), m.Status, utcOrNil(m.DeliveredAt), utcOrNil(m.FailedAt), time.Now().UTC(), m.ID, m.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
