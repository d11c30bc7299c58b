package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/audit"
	"github.com/jmehdipour/wctp-gateway/internal/carrier"
	"github.com/jmehdipour/wctp-gateway/internal/config"
	"github.com/jmehdipour/wctp-gateway/internal/db"
	"github.com/jmehdipour/wctp-gateway/internal/kafka"
	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/metrics"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/service/queue"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewWorkerCmd returns the parent "worker" command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background workers",
	}
	cmd.AddCommand(senderCmd)
	cmd.AddCommand(statusCmd)

	return cmd
}

// deps is what every worker process shares: the relational store, the
// task queue, the carrier client factory and the audit sink.
type deps struct {
	cfg      config.Config
	store    *sqlx.DB
	producer *kafka.Producer
	queue    *queue.Service
	clients  *carrier.Factory
	sink     *audit.Sink
	auditDB  *sqlx.DB
}

func setup(cmd *cobra.Command) (*deps, error) {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	v, err := vault.New(cfg.Vault.AppKey, vault.WithKeyID(cfg.Vault.KeyID), vault.WithVersion(cfg.Vault.Version))
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	d := &deps{cfg: cfg, clients: carrier.NewFactory(v, carrierConfig(cfg.Carriers))}

	d.store, err = db.OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}

	// the audit trail is best effort; run without it if ClickHouse is down
	var auditStore audit.Store
	d.auditDB, err = db.OpenAudit(cfg)
	if err != nil {
		logger.Named("worker").Warn("clickhouse unavailable, audit events will be dropped", zap.Error(err))
	} else {
		auditStore = repository.NewEventLogRepository(d.auditDB)
	}
	d.sink = audit.NewSink(auditStore, cfg.Audit.BatchSize, cfg.Audit.BatchWait)
	// stopped by close so events recorded during shutdown are still flushed
	d.sink.Start(context.Background())

	d.producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	d.queue = queue.New(d.producer, cfg.Kafka.SendTopic, cfg.Kafka.StatusTopic)

	return d, nil
}

func (d *deps) consumer(topic, group string) *kafka.Consumer {
	groupID := d.cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "wctpgw"
	}
	return kafka.NewConsumer(kafka.Config{
		Brokers:        d.cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID + "-" + group,
		MinBytes:       d.cfg.Kafka.MinBytes,
		MaxBytes:       d.cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(d.cfg.Kafka.CommitInterval) * time.Millisecond,
	})
}

// close flushes the audit sink before the stores go away.
func (d *deps) close() {
	if d.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = d.sink.Close(ctx)
		cancel()
	}
	if d.producer != nil {
		_ = d.producer.Close()
	}
	if d.auditDB != nil {
		_ = d.auditDB.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
	_ = logger.Log.Sync()
}

func carrierConfig(c config.CarriersConfig) carrier.Config {
	api := func(a config.CarrierAPIConfig) carrier.APIConfig {
		return carrier.APIConfig{
			BaseURL:       a.BaseURL,
			Timeout:       time.Duration(a.TimeoutMs) * time.Millisecond,
			FailThreshold: a.Breaker.FailThreshold,
			OpenFor:       time.Duration(a.Breaker.OpenForMs) * time.Millisecond,
		}
	}
	return carrier.Config{Twilio: api(c.Twilio), ThinQ: api(c.ThinQ)}
}
