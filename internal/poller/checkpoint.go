package poller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Checkpoint is the persisted cursor of one tailed contract.
type Checkpoint struct {
	Contract      string    `json:"contract,omitempty"`
	NextBlock     uint64    `json:"next_block"`
	ArchiveHeight uint64    `json:"archive_height"`
	SavedAt       time.Time `json:"saved_at"`
}

// Lag is how many blocks the cursor trailed the source when it was saved.
func (c Checkpoint) Lag() uint64 {
	if c.ArchiveHeight+1 <= c.NextBlock {
		return 0
	}
	return c.ArchiveHeight + 1 - c.NextBlock
}

// CheckpointStore keeps the cursor in a small JSON file. A checkpoint written for
// another contract is ignored on load.
type CheckpointStore struct {
	path     string
	contract string
	enabled  bool
	now      func() time.Time
}

func NewCheckpointStore(path, contract string, enabled bool) *CheckpointStore {
	return &CheckpointStore{
		path:     path,
		contract: strings.ToLower(contract),
		enabled:  enabled && path != "",
		now:      time.Now,
	}
}

// Load returns the stored checkpoint; ok is false when checkpointing is off, the
// file does not exist yet, or it belongs to a different contract.
func (c *CheckpointStore) Load() (cp Checkpoint, ok bool, err error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	switch {
	case os.IsNotExist(err):
		return Checkpoint{}, false, nil
	case err != nil:
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", c.path, err)
	}
	if c.contract != "" && cp.Contract != "" && strings.ToLower(cp.Contract) != c.contract {
		return cp, false, nil
	}
	return cp, true, nil
}

// Save writes the cursor through a temp file and rename so a crash never leaves a
// truncated checkpoint behind.
func (c *CheckpointStore) Save(nextBlock, archiveHeight uint64) error {
	if !c.enabled {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		Contract:      c.contract,
		NextBlock:     nextBlock,
		ArchiveHeight: archiveHeight,
		SavedAt:       c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
