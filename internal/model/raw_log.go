package model

import "github.com/ethereum/go-ethereum/common"

// RawLog is a chain log as returned by the log source, before decoding.
type RawLog struct {
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        []byte         `json:"data"`
	BlockNumber uint64         `json:"block_number"`
	TxHash      common.Hash    `json:"tx_hash"`
	Index       uint           `json:"log_index"`
}

// RawLogBatch is the result of one chain query starting at a cursor.
type RawLogBatch struct {
	Logs []RawLog
	// BlockTimestamps maps block number to unix seconds for every block referenced by Logs.
	BlockTimestamps map[uint64]uint64
	// NextBlock is the cursor to query from next. Always >= the requested block.
	NextBlock uint64
	// ArchiveHeight is the highest block the source has fully indexed.
	ArchiveHeight uint64
	ChainHeight   uint64
}

// Timestamp returns the block timestamp for number and whether it was present.
func (b RawLogBatch) Timestamp(number uint64) (uint64, bool) {
	ts, ok := b.BlockTimestamps[number]
	return ts, ok
}
