package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/cryptofono/cryptofono/internal/kafka"
	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/cryptofono/cryptofono/internal/repository"
)

// Archiver:
// - fetches transaction envelopes from Kafka (relayed off the outbox table),
// - batches them into the ClickHouse archive,
// - commits offsets only after a successful flush, so a crash replays the
//   batch instead of losing it. The archive table dedupes on id.
type Archiver struct {
	Consumer *kafka.Consumer
	Archive  repository.CHTransactionsRepository

	BatchSize int
	BatchWait time.Duration
}

func NewArchiver(consumer *kafka.Consumer, archive repository.CHTransactionsRepository, batchSize int, batchWait time.Duration) *Archiver {
	if batchSize <= 0 {
		batchSize = 200
	}
	if batchWait <= 0 {
		batchWait = 300 * time.Millisecond
	}
	return &Archiver{
		Consumer:  consumer,
		Archive:   archive,
		BatchSize: batchSize,
		BatchWait: batchWait,
	}
}

// Run blocks until ctx is cancelled. The final partial batch is flushed on
// shutdown.
func (a *Archiver) Run(ctx context.Context) error {
	msgCh := make(chan kafka.Message, a.BatchSize)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := a.Consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[archiver] kafka fetch err: %v", err)
				time.Sleep(200 * time.Millisecond)
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		envs []model.Envelope
		msgs []kafka.Message
	)

	timer := time.NewTimer(a.BatchWait)
	defer timer.Stop()

	flush := func() {
		if len(msgs) == 0 {
			return
		}
		if err := a.flush(envs, msgs); err != nil {
			// keep the batch; the next tick retries the same rows
			log.Printf("[archiver] flush failed (%d rows): %v", len(envs), err)
			return
		}
		envs = envs[:0]
		msgs = msgs[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()

		case m, ok := <-msgCh:
			if !ok {
				flush()
				return nil
			}
			var env model.Envelope
			if err := json.Unmarshal(m.Value, &env); err != nil {
				// malformed event: log, commit, move on
				log.Printf("[archiver] bad envelope at offset %d: %v", m.Offset, err)
				msgs = append(msgs, m)
				break
			}
			envs = append(envs, env)
			msgs = append(msgs, m)
			if len(msgs) >= a.BatchSize {
				flush()
			}

		case <-timer.C:
			flush()
			timer.Reset(a.BatchWait)
		}
	}
}

func (a *Archiver) flush(envs []model.Envelope, msgs []kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Archive.InsertBatch(ctx, envs); err != nil {
		return err
	}
	return a.Consumer.Commit(ctx, msgs...)
}
