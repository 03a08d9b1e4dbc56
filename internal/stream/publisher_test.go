package stream

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"objektFeed/internal/model"
)

type capturePublisher struct {
	topic string
	msgs  []*message.Message
}

func (c *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestPublishOneMessagePerEvent(t *testing.T) {
	capture := &capturePublisher{}
	p := NewWithPublisher(capture, "objekt:transfers", zap.NewNop())

	events := []model.TransferEvent{
		{ID: "b", TokenID: "2", BlockNumber: 11},
		{ID: "a", TokenID: "1", BlockNumber: 10},
	}
	if err := p.Publish(context.Background(), events); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if capture.topic != "objekt:transfers" || p.Topic() != capture.topic {
		t.Fatalf("topic = %q", capture.topic)
	}
	if len(capture.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(capture.msgs))
	}
	for i, msg := range capture.msgs {
		var ev model.TransferEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if ev.ID != events[i].ID || msg.Metadata.Get("event_id") != events[i].ID {
			t.Fatalf("message %d carries %q", i, ev.ID)
		}
	}
	if capture.msgs[1].Metadata.Get("block_number") != "10" {
		t.Fatalf("block_number metadata = %q", capture.msgs[1].Metadata.Get("block_number"))
	}
}

func TestPublishEmptyBatch(t *testing.T) {
	capture := &capturePublisher{}
	p := NewWithPublisher(capture, "t", zap.NewNop())
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(capture.msgs) != 0 {
		t.Fatalf("no messages expected")
	}
}
