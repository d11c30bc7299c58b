package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jmehdipour/wctp-gateway/internal/kafka"
	"go.uber.org/zap"
)

// Consumer is the subset of kafka.Consumer the workers need.
type Consumer interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// pool fetches from one consumer and fans out to n processors. Every
// message is committed after its handler returns, success or not: retries
// are re-published as new messages rather than redelivered.
type pool struct {
	consumer Consumer
	workers  int
	handle   func(ctx context.Context, m kafka.Message)
	log      *zap.Logger
}

func (p *pool) run(ctx context.Context) error {
	if p.workers <= 0 {
		p.workers = 8
	}

	msgCh := make(chan kafka.Message, p.workers*2)

	go func() {
		defer close(msgCh)
		for {
			m, err := p.consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.log.Warn("kafka fetch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgCh {
				p.handle(ctx, m)
				if err := p.consumer.Commit(ctx, m); err != nil && ctx.Err() == nil {
					p.log.Error("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
				}
			}
		}()
	}

	wg.Wait()
	return nil
}
