package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/wctp-gateway/internal/db"
	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/model"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo enterprise hosts and carriers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Named("seed")

		sqlDB, err := db.OpenStore(cfg)
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
		}
		defer sqlDB.Close()

		v, err := vault.New(cfg.Vault.AppKey, vault.WithKeyID(cfg.Vault.KeyID), vault.WithVersion(cfg.Vault.Version))
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		log.Info("seeding demo enterprise hosts")
		if err := seedHosts(ctx, repository.NewHostsRepository(sqlDB), v); err != nil {
			return err
		}
		log.Info("seeding demo carriers")
		if err := seedCarriers(ctx, repository.NewCarriersRepository(sqlDB), v); err != nil {
			return err
		}

		log.Info("seed completed")
		return nil
	},
}

type hostSaver interface {
	Save(ctx context.Context, h model.EnterpriseHost) error
}

type carrierSaver interface {
	Save(ctx context.Context, c model.Carrier) error
}

// seedHosts upserts deterministic demo hosts; security codes are stored
// as vault envelopes.
func seedHosts(ctx context.Context, repo hostSaver, v *vault.Vault) error {
	hosts := []struct{ senderID, securityCode string }{
		{"acme-paging", "acme-secret-1"},
		{"foobar-alerts", "foobar-secret-2"},
		{"beta-testers", "beta-secret-3"},
	}
	for _, h := range hosts {
		enc, err := v.Encrypt(h.securityCode)
		if err != nil {
			return fmt.Errorf("encrypt security code for %s: %w", h.senderID, err)
		}
		if err := repo.Save(ctx, model.EnterpriseHost{SenderID: h.senderID, SecurityCode: enc}); err != nil {
			return fmt.Errorf("save host %s: %w", h.senderID, err)
		}
		logger.Named("seed").Debug("host saved", zap.String("sender_id", h.senderID))
	}
	return nil
}

// seedCarriers upserts one carrier per implemented API plus a disabled
// carrier whose API has no client.
func seedCarriers(ctx context.Context, repo carrierSaver, v *vault.Vault) error {
	twilioToken, err := v.Encrypt("twilio-demo-auth-token")
	if err != nil {
		return fmt.Errorf("encrypt twilio token: %w", err)
	}
	thinqToken, err := v.Encrypt("thinq-demo-api-token")
	if err != nil {
		return fmt.Errorf("encrypt thinq token: %w", err)
	}

	carriers := []model.Carrier{
		{
			Name:             "twilio-primary",
			API:              model.CarrierTwilio.String(),
			Enabled:          true,
			Priority:         10,
			TwilioAccountSID: "AC00000000000000000000000000000000",
			TwilioAuthToken:  twilioToken,
			FromNumber:       "+15005550006",
		},
		{
			Name:             "thinq-backup",
			API:              model.CarrierThinQ.String(),
			Enabled:          true,
			Priority:         20,
			ThinQAccountID:   "10000",
			ThinQAPIUsername: "demo",
			ThinQAPIToken:    thinqToken,
			FromNumber:       "+15005550007",
		},
		{
			Name:     "bandwidth",
			API:      "bandwidth",
			Enabled:  false,
			Priority: 30,
		},
	}
	for _, c := range carriers {
		if err := repo.Save(ctx, c); err != nil {
			return fmt.Errorf("save carrier %s: %w", c.Name, err)
		}
	}
	return nil
}
