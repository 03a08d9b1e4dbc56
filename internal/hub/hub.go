// Package hub fans transfer events out to connected subscribers and replays recent
// history to new ones.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"objektFeed/internal/model"
	"objektFeed/internal/replay"
)

// ErrNotWritable is returned by Session.Send when the session cannot take a message.
var ErrNotWritable = errors.New("session not writable")

// Session is one subscriber connection.
type Session interface {
	ID() string
	Writable() bool
	Send(msg []byte) error
}

// CutoffFunc returns the timestamp before which history is not replayed. ok is false
// when there is no cutoff.
type CutoffFunc func(ctx context.Context) (cutoff time.Time, ok bool, err error)

type Option func(*Hub)

// WithCutoff limits replayed history to events after the returned timestamp.
func WithCutoff(fn CutoffFunc) Option {
	return func(h *Hub) { h.cutoff = fn }
}

// Hub connects the replay buffer with the session registry.
type Hub struct {
	registry Registry
	buffer   replay.Buffer
	cutoff   CutoffFunc
	logger   *zap.Logger
}

func New(registry Registry, buffer replay.Buffer, logger *zap.Logger, opts ...Option) *Hub {
	if registry == nil {
		registry = NewSessionSet()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{registry: registry, buffer: buffer, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sessions returns the number of registered sessions.
func (h *Hub) Sessions() int {
	return h.registry.Len()
}

// Connect registers s and sends it one history message when the buffer has entries.
// The session stays registered even if the history could not be delivered.
func (h *Hub) Connect(ctx context.Context, s Session) error {
	h.registry.Add(s)
	h.logger.Info("subscriber connected", zap.String("session", s.ID()), zap.Int("sessions", h.registry.Len()))

	events, err := h.history(ctx)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	msg, err := model.EncodeMessage(model.History(events))
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.Send(msg); err != nil {
		return fmt.Errorf("send history: %w", err)
	}
	return nil
}

// Disconnect deregisters s.
func (h *Hub) Disconnect(s Session) {
	h.registry.Remove(s)
	h.logger.Info("subscriber disconnected", zap.String("session", s.ID()), zap.Int("sessions", h.registry.Len()))
}

// Publish records batch in the replay buffer and sends it to every writable session.
// A buffer failure is reported but never prevents live delivery.
func (h *Hub) Publish(ctx context.Context, batch []model.TransferEvent) error {
	if len(batch) == 0 {
		return nil
	}

	if err := h.buffer.Append(ctx, batch); err != nil {
		h.logger.Error("persist history failed", zap.Error(err), zap.Int("events", len(batch)))
		sentry.CaptureException(err)
	}

	msg, err := model.EncodeMessage(model.Transfer(batch))
	if err != nil {
		return fmt.Errorf("encode transfer: %w", err)
	}

	delivered := 0
	for _, s := range h.registry.Sessions() {
		if !s.Writable() {
			continue
		}
		if err := s.Send(msg); err != nil {
			h.logger.Debug("skip session", zap.String("session", s.ID()), zap.Error(err))
			continue
		}
		delivered++
	}

	h.logger.Debug("published transfers", zap.Int("events", len(batch)), zap.Int("sessions", delivered))
	return nil
}

func (h *Hub) history(ctx context.Context) ([]model.TransferEvent, error) {
	if h.cutoff != nil {
		cutoff, ok, err := h.cutoff(ctx)
		switch {
		case err != nil:
			h.logger.Warn("history cutoff lookup failed", zap.Error(err))
		case ok:
			return h.buffer.SnapshotSince(ctx, cutoff)
		}
	}
	return h.buffer.Snapshot(ctx)
}
