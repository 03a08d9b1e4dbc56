// Package stream forwards emitted transfer events to a Redis stream for downstream
// consumers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"objektFeed/internal/model"
)

// Publisher publishes one stream message per transfer event.
type Publisher struct {
	pub    message.Publisher
	topic  string
	logger *zap.Logger
}

// New creates a Publisher writing to the Redis stream named topic.
func New(redisClient redis.UniversalClient, topic string, logger *zap.Logger) (*Publisher, error) {
	if topic == "" {
		return nil, fmt.Errorf("stream topic is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		NewLoggerAdapter(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create redisstream publisher: %w", err)
	}

	return NewWithPublisher(pub, topic, logger), nil
}

// NewWithPublisher wraps an existing watermill publisher.
func NewWithPublisher(pub message.Publisher, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{pub: pub, topic: topic, logger: logger}
}

// Publish sends events in the order given.
func (p *Publisher) Publish(ctx context.Context, events []model.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]*message.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal transfer event: %w", err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set("event_id", ev.ID)
		msg.Metadata.Set("token_id", ev.TokenID)
		msg.Metadata.Set("block_number", strconv.FormatUint(ev.BlockNumber, 10))
		msg.SetContext(ctx)
		msgs = append(msgs, msg)
	}

	if err := p.pub.Publish(p.topic, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	p.logger.Debug("stream publish ok", zap.String("topic", p.topic), zap.Int("events", len(msgs)))
	return nil
}

// Close closes the publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

// Topic returns the Redis stream name.
func (p *Publisher) Topic() string {
	return p.topic
}
