package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/wctp-gateway/internal/logger"
	"github.com/jmehdipour/wctp-gateway/internal/repository"
	"github.com/jmehdipour/wctp-gateway/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Deliver queued messages through their carrier",
	RunE:  runSender,
}

func runSender(cmd *cobra.Command, args []string) error {
	d, err := setup(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := d.consumer(d.cfg.Kafka.SendTopic, "sender")
	defer consumer.Close()

	carriers := repository.NewCarriersRepository(d.store)
	w := worker.NewSendWorker(
		consumer,
		carriers,
		d.clients,
		repository.NewMessagesRepository(d.store),
		d.queue,
		d.sink,
	)
	w.Topic = d.cfg.Kafka.SendTopic
	if d.cfg.Dispatcher.WorkerCount > 0 {
		w.Workers = d.cfg.Dispatcher.WorkerCount
	}
	if d.cfg.Dispatcher.MaxAttempts > 0 {
		w.MaxAttempts = d.cfg.Dispatcher.MaxAttempts
	}

	logger.Named("worker").Info("sender started",
		zap.String("topic", w.Topic),
		zap.Int("workers", w.Workers),
		zap.Int("max_attempts", w.MaxAttempts),
	)
	return w.Run(ctx)
}
