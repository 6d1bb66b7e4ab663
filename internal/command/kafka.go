package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/segmentio/kafka-go"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/log"
)

// dedupCacheSize bounds the command-ID dedup cache; direct-method-style
// remote commands must not double-fire on consumer-group rebalance
// redelivery, unlike the teacher's idempotent task CRUD commands.
const dedupCacheSize = 4096

// KafkaCommand is the wire format for a remote control-plane command.
type KafkaCommand struct {
	ID        string          `json:"id"`
	Command   string          `json:"command"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// KafkaCommandConsumer consumes Command messages from Kafka and dispatches
// them to a CommandHandler, grounded on the teacher's
// internal/command/kafka.go consumer-group FetchMessage/CommitMessages loop.
type KafkaCommandConsumer struct {
	reader  *kafka.Reader
	handler *CommandHandler
	seen    *lru.Cache[string, struct{}]
}

func NewKafkaCommandConsumer(cfg config.CommandChannelConfig, handler *CommandHandler) (*KafkaCommandConsumer, error) {
	kc := cfg.Kafka
	if len(kc.Brokers) == 0 {
		return nil, fmt.Errorf("kafka command channel: brokers is required")
	}
	if kc.Topic == "" {
		return nil, fmt.Errorf("kafka command channel: topic is required")
	}
	if kc.GroupID == "" {
		return nil, fmt.Errorf("kafka command channel: group_id is required")
	}

	startOffset := kafka.LastOffset
	if kc.AutoOffsetReset == "earliest" {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        kc.Brokers,
		Topic:          kc.Topic,
		GroupID:        kc.GroupID,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		CommitInterval: time.Second,
		MaxWait:        time.Second,
	})

	seen, err := lru.New[string, struct{}](dedupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("kafka command channel: dedup cache: %w", err)
	}

	return &KafkaCommandConsumer{reader: reader, handler: handler, seen: seen}, nil
}

// Start blocks consuming until ctx is cancelled.
func (c *KafkaCommandConsumer) Start(ctx context.Context) error {
	log.GetLogger().Info("kafka command consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if err == context.Canceled {
				return err
			}
			log.GetLogger().WithError(err).Warn("kafka command channel: fetch failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				continue
			}
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.GetLogger().WithError(err).Warn("kafka command channel: commit failed")
		}
	}
}

func (c *KafkaCommandConsumer) process(ctx context.Context, msg kafka.Message) {
	var kc KafkaCommand
	if err := json.Unmarshal(msg.Value, &kc); err != nil {
		log.GetLogger().WithError(err).Warn("kafka command channel: malformed message dropped")
		return
	}

	if kc.ID != "" {
		if _, dup := c.seen.Get(kc.ID); dup {
			log.GetLogger().WithField("id", kc.ID).Debug("kafka command channel: duplicate command dropped")
			return
		}
		c.seen.Add(kc.ID, struct{}{})
	}

	c.handler.Handle(ctx, Command{Method: kc.Command, Params: kc.Payload, ID: kc.ID})
}

func (c *KafkaCommandConsumer) Stop() error {
	return c.reader.Close()
}
