package model

import (
	"encoding/json"
	"fmt"
)

const (
	MessageTypeHistory  = "history"
	MessageTypeTransfer = "transfer"
)

// Message is a subscriber-bound payload. It is either History or Transfer.
type Message interface {
	Type() string
	Events() []TransferEvent
	sealed()
}

// History is the one-time replay sent to a new subscriber.
type History []TransferEvent

func (History) Type() string              { return MessageTypeHistory }
func (h History) Events() []TransferEvent { return h }
func (History) sealed()                   {}

// Transfer is a live batch of new events sent to every subscriber.
type Transfer []TransferEvent

func (Transfer) Type() string              { return MessageTypeTransfer }
func (t Transfer) Events() []TransferEvent { return t }
func (Transfer) sealed()                   {}

type envelope struct {
	Type string          `json:"type"`
	Data []TransferEvent `json:"data"`
}

// EncodeMessage renders msg as {"type": ..., "data": [...]}.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil message")
	}
	data := msg.Events()
	if data == nil {
		data = []TransferEvent{}
	}
	return json.Marshal(envelope{Type: msg.Type(), Data: data})
}

// DecodeMessage parses an encoded message back into History or Transfer.
func DecodeMessage(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch env.Type {
	case MessageTypeHistory:
		return History(env.Data), nil
	case MessageTypeTransfer:
		return Transfer(env.Data), nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", env.Type)
	}
}
