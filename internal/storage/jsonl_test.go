package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"objektFeed/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path)
	if err := s.Truncate(); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	ctx := context.Background()
	if err := s.Publish(ctx, []model.TransferEvent{{ID: "b"}, {ID: "a"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Publish(ctx, []model.TransferEvent{{ID: "c"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev model.TransferEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		ids = append(ids, ev.ID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "a" || ids[2] != "c" {
		t.Fatalf("unexpected lines: %v", ids)
	}
}
