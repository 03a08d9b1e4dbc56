package chain

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		r, _ := NextRange(start, to, batchSize)
		ranges = append(ranges, r)
		if r.To == to {
			break
		}
		start = r.To + 1
	}

	return ranges, nil
}

// NextRange returns the first batch of at most batchSize blocks starting at from and
// ending no later than limit. It reports false when from is already past limit.
func NextRange(from, limit, batchSize uint64) (BlockRange, bool) {
	if from > limit || batchSize == 0 {
		return BlockRange{}, false
	}
	end := limit
	if limit-from+1 > batchSize {
		end = from + batchSize - 1
	}
	return BlockRange{From: from, To: end}, true
}
