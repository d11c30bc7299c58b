package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// CarrierDirectory is the read-only view over configured carriers.
type CarrierDirectory interface {
	// FirstEnabled returns the enabled carrier with the lowest priority,
	// ties broken by id. (nil, nil) when none is enabled.
	FirstEnabled(ctx context.Context) (*model.Carrier, error)
	// GetEnabled returns the carrier only while it is enabled.
	GetEnabled(ctx context.Context, id int64) (*model.Carrier, error)
}

type CarriersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCarriersRepository(db *sqlx.DB) *CarriersRepositoryImpl {
	return &CarriersRepositoryImpl{db: db}
}

var _ CarrierDirectory = (*CarriersRepositoryImpl)(nil)

const carrierColumns = `id, name, api, enabled, priority,
	twilio_account_sid, twilio_auth_token,
	thinq_account_id, thinq_api_username, thinq_api_token,
	from_number, created_at, updated_at`

func (r *CarriersRepositoryImpl) FirstEnabled(ctx context.Context) (*model.Carrier, error) {
	return r.getOne(ctx, `
		SELECT `+carrierColumns+`
		  FROM carriers
		 WHERE enabled = ?
		 ORDER BY priority ASC, id ASC
		 LIMIT 1
	`, true)
}

func (r *CarriersRepositoryImpl) GetEnabled(ctx context.Context, id int64) (*model.Carrier, error) {
	return r.getOne(ctx, `
		SELECT `+carrierColumns+`
		  FROM carriers
		 WHERE id = ? AND enabled = ?
		 LIMIT 1
	`, id, true)
}

func (r *CarriersRepositoryImpl) getOne(ctx context.Context, q string, args ...any) (*model.Carrier, error) {
	var c model.Carrier
	err := r.db.GetContext(ctx, &c, r.db.Rebind(q), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save upserts a carrier by name. Used by provisioning only.
func (r *CarriersRepositoryImpl) Save(ctx context.Context, c model.Carrier) error {
	now := time.Now().UTC()

	var id int64
	err := r.db.GetContext(ctx, &id, r.db.Rebind(`SELECT id FROM carriers WHERE name = ? LIMIT 1`), c.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = r.db.ExecContext(ctx, r.db.Rebind(`
			INSERT INTO carriers
			    (name, api, enabled, priority,
			     twilio_account_sid, twilio_auth_token,
			     thinq_account_id, thinq_api_username, thinq_api_token,
			     from_number, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), c.Name, c.API, c.Enabled, c.Priority,
			c.TwilioAccountSID, c.TwilioAuthToken,
			c.ThinQAccountID, c.ThinQAPIUsername, c.ThinQAPIToken,
			c.FromNumber, now, now)
		return err
	case err != nil:
		return err
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE carriers
		   SET api = ?, enabled = ?, priority = ?,
		       twilio_account_sid = ?, twilio_auth_token = ?,
		       thinq_account_id = ?, thinq_api_username = ?, thinq_api_token = ?,
		       from_number = ?, updated_at = ?
		 WHERE id = ?
	`), c.API, c.Enabled, c.Priority,
		c.TwilioAccountSID, c.TwilioAuthToken,
		c.ThinQAccountID, c.ThinQAPIUsername, c.ThinQAPIToken,
		c.FromNumber, now, id)
	return err
}
