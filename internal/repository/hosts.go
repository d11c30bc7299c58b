package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

type HostsRepository interface {
	GetBySenderID(ctx context.Context, senderID string) (*model.EnterpriseHost, error)
}

type HostsRepositoryImpl struct {
	db *sqlx.DB
}

func NewHostsRepository(db *sqlx.DB) *HostsRepositoryImpl {
	return &HostsRepositoryImpl{db: db}
}

var _ HostsRepository = (*HostsRepositoryImpl)(nil)

// GetBySenderID returns (nil, nil) when no host owns senderID.
func (r *HostsRepositoryImpl) GetBySenderID(ctx context.Context, senderID string) (*model.EnterpriseHost, error) {
	var h model.EnterpriseHost
	err := r.db.GetContext(ctx, &h, r.db.Rebind(`
		SELECT id, sender_id, security_code, created_at, updated_at
		  FROM enterprise_hosts
		 WHERE sender_id = ? LIMIT 1
	`), senderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Save inserts the host or rotates the security code of an existing one.
func (r *HostsRepositoryImpl) Save(ctx context.Context, h model.EnterpriseHost) error {
	now := time.Now().UTC()
	existing, err := r.GetBySenderID(ctx, h.SenderID)
	if err != nil {
		return err
	}
	if existing != nil {
		_, err = r.db.ExecContext(ctx, r.db.Rebind(`
			UPDATE enterprise_hosts SET security_code = ?, updated_at = ? WHERE id = ?
		`), h.SecurityCode, now, existing.ID)
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO enterprise_hosts (sender_id, security_code, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`), h.SenderID, h.SecurityCode, now, now)
	return err
}
