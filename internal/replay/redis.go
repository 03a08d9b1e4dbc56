package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"objektFeed/internal/model"
)

// DefaultKey is the Redis list holding the history.
const DefaultKey = "transfer:history"

// Redis is a Buffer backed by a Redis list, shared across processes and restarts.
type Redis struct {
	cli    redis.UniversalClient
	key    string
	max    int
	logger *zap.Logger
}

func NewRedis(cli redis.UniversalClient, key string, max int, logger *zap.Logger) *Redis {
	if key == "" {
		key = DefaultKey
	}
	if max <= 0 {
		max = DefaultMaxHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{cli: cli, key: key, max: max, logger: logger}
}

// Append pushes batch and trims in a single MULTI/EXEC round trip.
func (r *Redis) Append(ctx context.Context, batch []model.TransferEvent) error {
	if len(batch) == 0 {
		return nil
	}

	// LPUSH inserts each value at the head in argument order, so the oldest event of
	// the batch goes first to leave the newest at index 0.
	values := make([]interface{}, 0, len(batch))
	for i := len(batch) - 1; i >= 0; i-- {
		encoded, err := json.Marshal(batch[i])
		if err != nil {
			return fmt.Errorf("marshal transfer event: %w", err)
		}
		values = append(values, encoded)
	}

	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, values...)
		pipe.LTrim(ctx, r.key, 0, int64(r.max-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *Redis) Snapshot(ctx context.Context) ([]model.TransferEvent, error) {
	raw, err := r.cli.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	events := make([]model.TransferEvent, 0, len(raw))
	for _, item := range raw {
		var ev model.TransferEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			r.logger.Warn("skip malformed history entry", zap.String("key", r.key), zap.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *Redis) SnapshotSince(ctx context.Context, cutoff time.Time) ([]model.TransferEvent, error) {
	events, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Since(events, cutoff), nil
}
