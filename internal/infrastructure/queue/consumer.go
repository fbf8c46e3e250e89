package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohammadpnp/member-import/internal/metrics"
)

// Handler runs one delivered job. A returned error schedules a retry while
// attempts remain and dead-letters the job afterwards.
type Handler func(ctx context.Context, msg Message) error

type broker interface {
	Name() string
	Pop(ctx context.Context, wait time.Duration) (Message, bool, error)
	Schedule(ctx context.Context, msg Message, delay time.Duration) error
	DeadLetter(ctx context.Context, msg Message, cause error) error
	Promote(ctx context.Context, now time.Time) (int, error)
}

type ConsumerConfig struct {
	Workers      int
	MaxAttempts  int
	Backoff      []time.Duration
	JobTimeout   time.Duration
	PollInterval time.Duration
}

type Consumer struct {
	broker  broker
	handler Handler
	cfg     ConsumerConfig
	log     zerolog.Logger

	once sync.Once
	wg   sync.WaitGroup
}

func NewConsumer(b broker, handler Handler, cfg ConsumerConfig, log zerolog.Logger) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 1800 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Consumer{
		broker:  b,
		handler: handler,
		cfg:     cfg,
		log:     log.With().Str("component", "queue_consumer").Str("queue", b.Name()).Logger(),
	}
}

// Start launches the worker loops and the retry promoter. It is safe to call more than once.
func (c *Consumer) Start(ctx context.Context) {
	c.once.Do(func() {
		c.wg.Add(c.cfg.Workers + 1)
		for i := 0; i < c.cfg.Workers; i++ {
			go func() {
				defer c.wg.Done()
				c.workerLoop(ctx)
			}()
		}
		go func() {
			defer c.wg.Done()
			c.promoteLoop(ctx)
		}()
	})
}

// Wait blocks until every loop started by Start has returned.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, ok, err := c.broker.Pop(ctx, c.cfg.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error().Err(err).Msg("pop chunk job failed")
			if !sleepWithContext(ctx, c.cfg.PollInterval) {
				return
			}
			continue
		}
		if !ok {
			continue
		}

		c.Deliver(ctx, msg)
	}
}

// Deliver runs the handler for msg under the job timeout and routes failures.
func (c *Consumer) Deliver(ctx context.Context, msg Message) {
	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	err := c.handler(jobCtx, msg)
	cancel()
	if err == nil {
		return
	}

	log := c.log.With().
		Str("import_id", msg.ImportID).
		Str("chunk_id", msg.ChunkID).
		Int("attempt", msg.Attempt).
		Logger()

	// Routing must survive a shutdown that cancelled the job.
	routeCtx := context.WithoutCancel(ctx)
	if msg.Attempt < c.cfg.MaxAttempts {
		delay := retryDelay(c.cfg.Backoff, msg.Attempt)
		next := msg
		next.Attempt++
		if schedErr := c.broker.Schedule(routeCtx, next, delay); schedErr != nil {
			log.Error().Err(schedErr).AnErr("cause", err).Msg("schedule chunk job retry failed")
			return
		}
		metrics.QueueRetry(c.broker.Name())
		log.Warn().Err(err).Dur("delay", delay).Msg("chunk job failed, retry scheduled")
		return
	}

	if dlqErr := c.broker.DeadLetter(routeCtx, msg, err); dlqErr != nil {
		log.Error().Err(dlqErr).AnErr("cause", err).Msg("dead-letter chunk job failed")
		return
	}
	log.Error().Err(err).Msg("chunk job exhausted its attempts")
}

func (c *Consumer) promoteLoop(ctx context.Context) {
	for {
		moved, err := c.broker.Promote(ctx, time.Now())
		if err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Msg("promote scheduled jobs failed")
		}
		if moved > 0 {
			c.log.Debug().Int("moved", moved).Msg("promoted scheduled jobs")
		}
		if !sleepWithContext(ctx, c.cfg.PollInterval) {
			return
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
