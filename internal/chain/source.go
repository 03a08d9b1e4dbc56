package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"objektFeed/internal/model"
)

// LogReader is the subset of Client used by Source.
type LogReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// SourceConfig selects which logs Source returns and how far it reads per query.
type SourceConfig struct {
	Contract      common.Address
	Topic0        common.Hash
	BatchSize     uint64
	Confirmations uint64
}

// Source turns a JSON-RPC node into a cursor-driven log feed.
type Source struct {
	cfg    SourceConfig
	reader LogReader
	logger *zap.Logger
}

func NewSource(cfg SourceConfig, reader LogReader, logger *zap.Logger) (*Source, error) {
	if reader == nil {
		return nil, fmt.Errorf("log reader is nil")
	}
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, reader: reader, logger: logger}, nil
}

// Height returns the highest block the source is willing to serve, the chain head
// minus the configured confirmations.
func (s *Source) Height(ctx context.Context) (uint64, error) {
	head, err := s.reader.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	return s.archiveHeight(head), nil
}

// Query returns the logs of the next batch of blocks starting at fromBlock. When no
// block at or after fromBlock is available yet the batch is empty and NextBlock equals
// fromBlock.
func (s *Source) Query(ctx context.Context, fromBlock uint64) (model.RawLogBatch, error) {
	head, err := s.reader.LatestBlockNumber(ctx)
	if err != nil {
		return model.RawLogBatch{}, fmt.Errorf("get latest block: %w", err)
	}
	archive := s.archiveHeight(head)

	blockRange, ok := NextRange(fromBlock, archive, s.cfg.BatchSize)
	if !ok {
		return model.RawLogBatch{
			NextBlock:     fromBlock,
			ArchiveHeight: archive,
			ChainHeight:   head,
		}, nil
	}

	batch, err := s.Fetch(ctx, blockRange)
	if err != nil {
		return model.RawLogBatch{}, err
	}
	batch.ArchiveHeight = archive
	batch.ChainHeight = head

	if forgetter, ok := s.reader.(interface{ ForgetTimestampsBelow(uint64) }); ok {
		forgetter.ForgetTimestampsBelow(blockRange.From)
	}
	return batch, nil
}

// Fetch reads one explicit block range.
func (s *Source) Fetch(ctx context.Context, blockRange BlockRange) (model.RawLogBatch, error) {
	logs, err := s.reader.FilterLogs(ctx, blockRange.From, blockRange.To,
		[]common.Address{s.cfg.Contract}, []common.Hash{s.cfg.Topic0})
	if err != nil {
		return model.RawLogBatch{}, fmt.Errorf("filter logs %d-%d: %w", blockRange.From, blockRange.To, err)
	}

	batch := model.RawLogBatch{
		Logs:            make([]model.RawLog, 0, len(logs)),
		BlockTimestamps: make(map[uint64]uint64),
		NextBlock:       blockRange.To + 1,
	}
	for _, log := range logs {
		if log.Removed {
			continue
		}
		if _, ok := batch.BlockTimestamps[log.BlockNumber]; !ok {
			ts, err := s.reader.BlockTimestamp(ctx, log.BlockNumber)
			if err != nil {
				return model.RawLogBatch{}, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			batch.BlockTimestamps[log.BlockNumber] = ts
		}
		batch.Logs = append(batch.Logs, toRawLog(log))
	}

	s.logger.Debug("fetched logs",
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
		zap.Int("logs", len(batch.Logs)),
	)
	return batch, nil
}

func (s *Source) archiveHeight(head uint64) uint64 {
	if head < s.cfg.Confirmations {
		return 0
	}
	return head - s.cfg.Confirmations
}

func toRawLog(log types.Log) model.RawLog {
	topics := make([]common.Hash, len(log.Topics))
	copy(topics, log.Topics)
	return model.RawLog{
		Address:     log.Address,
		Topics:      topics,
		Data:        log.Data,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		Index:       log.Index,
	}
}
