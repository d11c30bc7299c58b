package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/db"
	"github.com/jmehdipour/wctp-gateway/internal/dispatcher"
	httpSrv "github.com/jmehdipour/wctp-gateway/internal/http"
	"github.com/jmehdipour/wctp-gateway/internal/kafka"
	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/service/ingress"
	"github.com/jmehdipour/wctp-gateway/internal/service/queue"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WCTP HTTP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Named("serve")
		defer func() { _ = logger.Log.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		sqlDB, err := db.OpenStore(cfg)
		if err != nil {
			return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
		}
		defer sqlDB.Close()

		redisClient, err := db.OpenRedis(cfg)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		} else {
			log.Warn("redis not configured, rate limiting disabled")
		}

		v, err := vault.New(cfg.Vault.AppKey, vault.WithKeyID(cfg.Vault.KeyID), vault.WithVersion(cfg.Vault.Version))
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}

		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer func() { _ = producer.Close() }()

		q := queue.New(producer, cfg.Kafka.SendTopic, cfg.Kafka.StatusTopic)
		router := dispatcher.NewRouter(repository.NewCarriersRepository(sqlDB), q)
		svc := ingress.New(repository.NewHostsRepository(sqlDB), v, router)

		server := httpSrv.NewServer(cfg, svc, redisClient)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
