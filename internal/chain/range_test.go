package chain

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestNextRange(t *testing.T) {
	cases := []struct {
		from, limit, batch uint64
		want               BlockRange
		ok                 bool
	}{
		{from: 10, limit: 100, batch: 5, want: BlockRange{From: 10, To: 14}, ok: true},
		{from: 10, limit: 12, batch: 5, want: BlockRange{From: 10, To: 12}, ok: true},
		{from: 12, limit: 12, batch: 5, want: BlockRange{From: 12, To: 12}, ok: true},
		{from: 13, limit: 12, batch: 5, ok: false},
		{from: 1, limit: 12, batch: 0, ok: false},
	}
	for _, tc := range cases {
		got, ok := NextRange(tc.from, tc.limit, tc.batch)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("NextRange(%d, %d, %d) = %+v, %v; want %+v, %v", tc.from, tc.limit, tc.batch, got, ok, tc.want, tc.ok)
		}
	}
}
