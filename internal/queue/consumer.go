package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/faceid/internal/models"
)

// EventHandler processes one decoded identity event. A returned error naks the message.
type EventHandler func(ctx context.Context, ev models.IdentityEvent) error

// ConsumerOptions selects what a durable consumer receives.
type ConsumerOptions struct {
	Name    string
	Workers int
	// Types limits delivery to these event types. Empty means all.
	Types []models.EventType
	// NewOnly skips events published before the consumer was first created.
	NewOnly bool
}

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, err := connect(natsURL)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Consumer{nc: nc, js: js}, nil
}

// ConsumeIdentityEvents starts a durable consumer on the IDENTITIES stream.
// It returns once the consumer exists; delivery runs until ctx is done.
func (c *Consumer) ConsumeIdentityEvents(ctx context.Context, opts ConsumerOptions, handler EventHandler) error {
	stream, err := c.js.Stream(ctx, IdentitiesStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", IdentitiesStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, consumerConfig(opts))
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", opts.Name, err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	msgCh := make(chan jetstream.Msg, workers*2)

	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(workers*5, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch identity events", "consumer", opts.Name, "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				select {
				case msgCh <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			for msg := range msgCh {
				ev, err := DecodeIdentityEvent(msg.Data())
				if err != nil {
					// A malformed payload will never decode; drop it.
					slog.Error("decode identity event", "subject", msg.Subject(), "error", err)
					_ = msg.Term()
					continue
				}
				if err := handler(ctx, ev); err != nil {
					slog.Error("process identity event", "worker", workerID, "type", ev.Type, "error", err)
					_ = msg.Nak()
					continue
				}
				_ = msg.Ack()
			}
		}(i)
	}

	slog.Info("identity event consumer started", "consumer", opts.Name, "workers", workers)
	return nil
}

func consumerConfig(opts ConsumerOptions) jetstream.ConsumerConfig {
	cfg := jetstream.ConsumerConfig{
		Name:          opts.Name,
		Durable:       opts.Name,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if opts.NewOnly {
		cfg.DeliverPolicy = jetstream.DeliverNewPolicy
	}

	switch len(opts.Types) {
	case 0:
		cfg.FilterSubject = IdentitiesSubjectBase + ".>"
	case 1:
		cfg.FilterSubject = Subject(opts.Types[0])
	default:
		for _, t := range opts.Types {
			cfg.FilterSubjects = append(cfg.FilterSubjects, Subject(t))
		}
	}
	return cfg
}

// DecodeIdentityEvent parses a published event payload.
func DecodeIdentityEvent(data []byte) (models.IdentityEvent, error) {
	var ev models.IdentityEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.IdentityEvent{}, fmt.Errorf("unmarshal identity event: %w", err)
	}
	if ev.Type == "" {
		return models.IdentityEvent{}, fmt.Errorf("identity event without type")
	}
	return ev, nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
