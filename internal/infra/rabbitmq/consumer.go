package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxBackoff = 60 * time.Second

type MessageHandler func(ctx context.Context, body []byte) error

// Consumer feeds palette requests to a fixed pool of handler goroutines.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	workers   int
	baseDelay time.Duration
	handler   MessageHandler
	logger    *zap.Logger
	wg        sync.WaitGroup
}

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{
		conn:      conn,
		channel:   ch,
		queue:     cfg.Queue,
		workers:   max(cfg.WorkerCount, 1),
		baseDelay: time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:   handler,
		logger:    logger,
	}, nil
}

// declareTopology declares the palette exchange and queues and binds them.
func declareTopology(ch *amqp.Channel, cfg ConsumerConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for _, q := range []string{cfg.Queue, cfg.DLQ, cfg.StatusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	bindings := map[string]string{
		cfg.Queue:       ProcessingRoutingKey,
		cfg.StatusQueue: StatusRoutingKey,
	}
	for q, key := range bindings {
		if err := ch.QueueBind(q, key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", q, key, err)
		}
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting palette workers",
		zap.Int("workers", c.workers),
		zap.String("queue", c.queue),
	)

	for i := range c.workers {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for palette workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.handle(ctx, d, log.With(requestFields(d.Body)...))
		}
	}
}

type disposition int

const (
	ack disposition = iota
	reject
	requeue
)

// dispositionOf decides what happens to a delivery after the handler ran.
// Palette failures that no retry can fix are rejected outright.
func dispositionOf(err error) disposition {
	switch {
	case err == nil:
		return ack
	case errors.Is(err, palette.ErrEmptyVideo), errors.Is(err, palette.ErrEmptyPalette), errors.Is(err, palette.ErrInvalidPalette):
		return reject
	default:
		return requeue
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	err := c.handler(ctx, d.Body)

	switch dispositionOf(err) {
	case ack:
		_ = d.Ack(false)
	case reject:
		log.Error("palette request cannot succeed, rejecting", zap.Error(err))
		_ = d.Nack(false, false)
	case requeue:
		attempt := attemptFromHeaders(d.Headers)
		delay := backoff(c.baseDelay, attempt)
		log.Warn("palette request failed, requeueing after backoff",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Bool("redelivered", d.Redelivered),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
		// Shutdown requeues as well.
		_ = d.Nack(false, true)
	}
}

// requestFields tags log lines with the job a delivery belongs to.
func requestFields(body []byte) []zap.Field {
	var msg entity.PaletteRequestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return []zap.Field{zap.Bool("malformed", true)}
	}
	return []zap.Field{
		zap.String("job_id", msg.JobID.String()),
		zap.String("video_key", msg.VideoKey),
	}
}

// attemptFromHeaders counts prior dead-letterings recorded by the broker.
func attemptFromHeaders(headers amqp.Table) int {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok || len(deaths) == 0 {
		return 1
	}
	total := 0
	for _, d := range deaths {
		entry, ok := d.(amqp.Table)
		if !ok {
			total++
			continue
		}
		switch n := entry["count"].(type) {
		case int64:
			total += int(n)
		case int32:
			total += int(n)
		case int:
			total += n
		default:
			total++
		}
	}
	return max(total, 1)
}

func backoff(base time.Duration, attempt int) time.Duration {
	if attempt > 16 {
		return maxBackoff
	}
	delay := base * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
