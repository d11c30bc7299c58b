package worker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/wctp-gateway/internal/db"
	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/reconcile"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/sweeper"
	"github.com/jmehdipour/wctp-gateway/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var noSweep bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reconcile in-flight messages with their carrier",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&noSweep, "no-sweep", false, "consume status tasks without running the sweeper")
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := setup(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	log := logger.Named("worker")

	rdb, err := db.OpenRedis(d.cfg)
	if err != nil {
		return err
	}
	if rdb == nil {
		return errors.New("status worker needs redis for per-message locks")
	}
	defer func() { _ = rdb.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages := repository.NewMessagesRepository(d.store)
	r := reconcile.New(
		messages,
		repository.NewCarriersRepository(d.store),
		d.clients,
		reconcile.NewRedisLocker(rdb, d.cfg.Reconcile.LockTTL),
		d.sink,
	)

	if !noSweep {
		sw := sweeper.New(messages, d.queue, sweeper.Config{
			Interval:  d.cfg.Reconcile.SweepInterval,
			MinAge:    d.cfg.Reconcile.MinAge,
			BatchSize: d.cfg.Reconcile.BatchSize,
		})
		swDone := make(chan struct{})
		go func() {
			defer close(swDone)
			_ = sw.Run(ctx)
		}()
		defer func() {
			stop()
			<-swDone
		}()
	}

	consumer := d.consumer(d.cfg.Kafka.StatusTopic, "status")
	defer consumer.Close()

	w := worker.NewStatusWorker(consumer, r, d.queue, d.sink)
	w.Topic = d.cfg.Kafka.StatusTopic
	if d.cfg.Dispatcher.WorkerCount > 0 {
		w.Workers = d.cfg.Dispatcher.WorkerCount
	}
	if d.cfg.Dispatcher.MaxAttempts > 0 {
		w.MaxAttempts = d.cfg.Dispatcher.MaxAttempts
	}
	if d.cfg.Reconcile.RetryBackoff > 0 {
		w.RetryBackoff = d.cfg.Reconcile.RetryBackoff
	}

	log.Info("status worker started",
		zap.String("topic", w.Topic),
		zap.Int("workers", w.Workers),
		zap.Bool("sweep", !noSweep),
		zap.Duration("sweep_interval", d.cfg.Reconcile.SweepInterval),
	)
	return w.Run(ctx)
}
