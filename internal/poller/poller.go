// Package poller follows the chain tail: it queries a log source from a cursor,
// hands non-empty batches to the enrichment stage, emits the results newest-first
// and waits for the chain to grow before moving on.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"objektFeed/internal/model"
)

// Source yields raw log batches starting at a block cursor.
type Source interface {
	Query(ctx context.Context, fromBlock uint64) (model.RawLogBatch, error)
	Height(ctx context.Context) (uint64, error)
}

// Enricher turns a raw batch into transfer events in chain order.
type Enricher interface {
	Enrich(ctx context.Context, batch model.RawLogBatch) ([]model.TransferEvent, error)
}

// Sink receives every non-empty, newest-first batch of events.
type Sink interface {
	Publish(ctx context.Context, events []model.TransferEvent) error
}

// Config holds runtime settings for the poller.
type Config struct {
	// FromBlock is the first block to query. Zero starts at the source height.
	FromBlock         uint64
	CatchUpInterval   time.Duration
	RetryBackoff      time.Duration
	MaxBackoff        time.Duration
	CheckpointPath    string
	CheckpointEnabled bool
	// Contract scopes the checkpoint so a file written for another contract is not resumed.
	Contract string
}

type state int

const (
	stateQuerying state = iota
	stateEmptyBatch
	stateNonEmptyBatch
	stateCatchUpWait
	stateAdvance
)

func (s state) String() string {
	switch s {
	case stateQuerying:
		return "querying"
	case stateEmptyBatch:
		return "empty_batch"
	case stateNonEmptyBatch:
		return "non_empty_batch"
	case stateCatchUpWait:
		return "catch_up_wait"
	case stateAdvance:
		return "advance"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Poller drives a Source from its cursor forever.
type Poller struct {
	cfg        Config
	source     Source
	enricher   Enricher
	sinks      []Sink
	logger     *zap.Logger
	checkpoint *CheckpointStore

	cursor uint64
}

// New builds a Poller with its dependencies.
func New(cfg Config, source Source, enricher Enricher, sinks []Sink, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CatchUpInterval <= 0 {
		cfg.CatchUpInterval = time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Poller{
		cfg:        cfg,
		source:     source,
		enricher:   enricher,
		sinks:      sinks,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.Contract, cfg.CheckpointEnabled),
	}
}

// Cursor returns the next block to be queried.
func (p *Poller) Cursor() uint64 {
	return p.cursor
}

// Run executes the polling loop until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("source is nil")
	}
	if p.enricher == nil {
		return fmt.Errorf("enricher is nil")
	}

	retry := newBackoff(p.cfg.RetryBackoff, p.cfg.MaxBackoff)
	if err := p.start(ctx, retry); err != nil {
		return err
	}
	p.logger.Info("poller started", zap.Uint64("cursor", p.cursor))

	var (
		batch model.RawLogBatch
		st    = stateQuerying
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.logger.Debug("poller state", zap.Stringer("state", st), zap.Uint64("cursor", p.cursor))

		switch st {
		case stateQuerying:
			var err error
			batch, err = p.source.Query(ctx, p.cursor)
			if err != nil {
				if err := p.failed(ctx, retry, "query logs", err); err != nil {
					return err
				}
				continue
			}
			if len(batch.Logs) == 0 {
				st = stateEmptyBatch
			} else {
				st = stateNonEmptyBatch
			}

		case stateEmptyBatch:
			retry.reset()
			st = stateCatchUpWait

		case stateNonEmptyBatch:
			events, err := p.enricher.Enrich(ctx, batch)
			if err != nil {
				if err := p.failed(ctx, retry, "enrich batch", err); err != nil {
					return err
				}
				st = stateQuerying
				continue
			}
			retry.reset()
			if len(events) > 0 {
				p.emit(ctx, lo.Reverse(events))
			}
			st = stateCatchUpWait

		case stateCatchUpWait:
			if err := p.catchUp(ctx, batch.ArchiveHeight, batch.NextBlock); err != nil {
				return err
			}
			st = stateAdvance

		case stateAdvance:
			p.advance(batch.NextBlock, batch.ArchiveHeight)
			st = stateQuerying
		}
	}
}

// start resolves the first cursor. The start height lookup is retried like any
// other source failure.
func (p *Poller) start(ctx context.Context, retry *backoff) error {
	cursor := p.cfg.FromBlock
	if cursor == 0 {
		for {
			height, err := p.source.Height(ctx)
			if err == nil {
				cursor = height
				break
			}
			if err := p.failed(ctx, retry, "get start height", err); err != nil {
				return err
			}
		}
		retry.reset()
	}

	cp, ok, err := p.checkpoint.Load()
	if err != nil {
		return err
	}
	switch {
	case !ok && cp.Contract != "":
		p.logger.Warn("ignore checkpoint of another contract", zap.String("contract", cp.Contract))
	case ok && cp.NextBlock > cursor:
		p.logger.Info("resume from checkpoint",
			zap.Uint64("next_block", cp.NextBlock),
			zap.Uint64("from", cursor),
			zap.Time("saved_at", cp.SavedAt),
			zap.Uint64("lag", cp.Lag()),
		)
		cursor = cp.NextBlock
	}

	p.cursor = cursor
	return nil
}

// failed logs err, reports the first failure of a streak and backs off. It only
// returns an error when ctx is done.
func (p *Poller) failed(ctx context.Context, retry *backoff, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if retry.fail() {
		sentry.CaptureException(fmt.Errorf("%s at block %d: %w", op, p.cursor, err))
	}
	p.logger.Warn(op+" failed",
		zap.Error(err),
		zap.Uint64("cursor", p.cursor),
		zap.Int("failures", retry.failures),
	)
	return retry.wait(ctx)
}

func (p *Poller) emit(ctx context.Context, events []model.TransferEvent) {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("publish events failed", zap.Error(err), zap.Int("events", len(events)))
		}
	}
}

// catchUp blocks until the source height reaches nextBlock.
func (p *Poller) catchUp(ctx context.Context, height, nextBlock uint64) error {
	for height < nextBlock {
		if err := sleep(ctx, p.cfg.CatchUpInterval); err != nil {
			return err
		}
		h, err := p.source.Height(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("get height failed", zap.Error(err), zap.Uint64("next_block", nextBlock))
			continue
		}
		height = h
	}
	return nil
}

func (p *Poller) advance(next, archiveHeight uint64) {
	if next <= p.cursor {
		return
	}
	p.cursor = next
	if err := p.checkpoint.Save(next, archiveHeight); err != nil {
		p.logger.Warn("save checkpoint failed", zap.Error(err), zap.Uint64("next_block", next))
	}
}
