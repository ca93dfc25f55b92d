// Package nats carries decomposition results over NATS JetStream from
// the batch job to the storage writer.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrMalformed marks a message that can never be processed. Handlers
// wrap it so the message is terminated instead of redelivered.
var ErrMalformed = errors.New("malformed message")

// Config holds NATS client configuration
type Config struct {
	URL           string        `yaml:"url" split_words:"true"`
	StreamName    string        `yaml:"stream_name" split_words:"true"`
	RetryAttempts int           `yaml:"retry_attempts" split_words:"true"`
	RetryDelay    time.Duration `yaml:"retry_delay" split_words:"true"`
	// Rows per salesfactor.rows.write message
	BatchSize int `yaml:"batch_size" split_words:"true"`
	// Window in which a republished run is dropped as duplicate
	DedupWindow time.Duration `yaml:"dedup_window" split_words:"true"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		StreamName:    "salesfactor",
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		BatchSize:     5000,
		DedupWindow:   time.Hour,
	}
}

// Client publishes and consumes run messages on one stream
type Client struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg Config
}

// NewClient connects and opens JetStream
func NewClient(cfg Config) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("salesfactor"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.RetryAttempts),
		nats.ReconnectWait(cfg.RetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &Client{nc: nc, js: js, cfg: cfg}, nil
}

// CreateStream creates or updates the work-queue stream. With no
// subjects, every salesfactor subject is bound.
func (c *Client) CreateStream(ctx context.Context, subjects ...string) error {
	if len(subjects) == 0 {
		subjects = Subjects()
	}
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       c.cfg.StreamName,
		Subjects:   subjects,
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		MaxAge:     24 * time.Hour,
		Duplicates: c.cfg.DedupWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.cfg.StreamName, err)
	}
	return nil
}

// PublishJSON encodes v and publishes it. msgID, when set, lets the
// server drop a republish of the same message.
func (c *Client) PublishJSON(ctx context.Context, subject, msgID string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", subject, err)
	}

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}
	if _, err := c.js.Publish(ctx, subject, data, opts...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// PublishRun sends a whole run: the row batches, then the curve, then
// the completion event, so a consumer sees the event last.
func (c *Client) PublishRun(ctx context.Context, rows []RowBatchMsg, curve *CurveMsg, done *RunCompletedMsg) error {
	runID := done.Run.RunID
	for _, batch := range rows {
		if err := c.PublishJSON(ctx, SubjectRowsWrite, fmt.Sprintf("%s-rows-%d", runID, batch.Seq), batch); err != nil {
			return fmt.Errorf("batch %d: %w", batch.Seq, err)
		}
	}
	if err := c.PublishJSON(ctx, SubjectCurvesWrite, runID+"-curve", curve); err != nil {
		return err
	}
	return c.PublishJSON(ctx, SubjectRunsCompleted, runID+"-done", done)
}

// MessageHandler processes one message. Returning an error wrapping
// ErrMalformed terminates the message; any other error redelivers it.
type MessageHandler func(msg jetstream.Msg) error

// Subscribe creates a durable consumer on subject and starts consuming
func (c *Client) Subscribe(ctx context.Context, subject, consumerName string, handler MessageHandler) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.StreamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		switch err := handler(msg); {
		case err == nil:
			msg.Ack()
		case errors.Is(err, ErrMalformed):
			msg.Term()
		default:
			msg.Nak()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %s: %w", subject, err)
	}
	return consumeCtx, nil
}

// Close drains pending publishes and closes the connection
func (c *Client) Close() {
	if c.nc == nil {
		return
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
	}
}
