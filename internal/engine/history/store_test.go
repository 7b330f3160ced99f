package history

import (
	"testing"

	"NetSentry/internal/model"
)

func rec(id int64, pkts uint64, end float64) *model.WindowRecord {
	return &model.WindowRecord{
		WindowID:    id,
		PktsTotal:   pkts,
		TstampStart: end - 0.9,
		TstampEnd:   end,
	}
}

func TestStoreSizeBound(t *testing.T) {
	// 1. Push more records than the size cap allows.
	s := NewStore(3, 5, 0, 0)
	for i := int64(0); i < 8; i++ {
		s.Push("src", rec(i, 100, float64(i)))
	}

	// 2. Only the newest historySize records survive.
	if s.Len("src") != 5 {
		t.Fatalf("Expected 5 retained records, got %d", s.Len("src"))
	}
	tail := s.EligibleTail("src")
	if tail[len(tail)-1].WindowID != 7 {
		t.Errorf("Expected newest window id 7, got %d", tail[len(tail)-1].WindowID)
	}
}

func TestStoreUnboundedWhenSizeZero(t *testing.T) {
	s := NewStore(3, 0, 0, 0)
	for i := int64(0); i < 100; i++ {
		s.Push("src", rec(i, 100, float64(i)))
	}
	if s.Len("src") != 100 {
		t.Errorf("Expected all 100 records retained, got %d", s.Len("src"))
	}
}

func TestStoreTimeoutEviction(t *testing.T) {
	// 1. Two old records, then one far in the future.
	s := NewStore(1, 0, 10.0, 0)
	s.Push("src", rec(0, 100, 0.9))
	s.Push("src", rec(1, 100, 1.9))
	if s.Len("src") != 2 {
		t.Fatalf("Expected 2 records before timeout, got %d", s.Len("src"))
	}

	// 2. The push at t=50 evicts everything older than the timeout.
	s.Push("src", rec(50, 100, 50.9))
	if s.Len("src") != 1 {
		t.Fatalf("Expected 1 record after timeout eviction, got %d", s.Len("src"))
	}
	tail := s.EligibleTail("src")
	if tail[0].WindowID != 50 {
		t.Errorf("Expected surviving window id 50, got %d", tail[0].WindowID)
	}
}

func TestStoreEligibility(t *testing.T) {
	// 1. Fewer than historyMin records: not eligible.
	s := NewStore(3, 0, 0, 20)
	s.Push("src", rec(0, 100, 0.9))
	s.Push("src", rec(1, 100, 1.9))
	if tail := s.EligibleTail("src"); tail != nil {
		t.Fatalf("Expected nil tail with 2 of 3 records, got %d records", len(tail))
	}

	// 2. Enough records but the newest one is below packetsMin.
	s.Push("src", rec(2, 5, 2.9))
	if tail := s.EligibleTail("src"); tail != nil {
		t.Fatal("Expected nil tail when newest window is below packets_min")
	}

	// 3. A busy newest window makes the source eligible; the tail holds
	// exactly historyMin records, newest last.
	s.Push("src", rec(3, 25, 3.9))
	tail := s.EligibleTail("src")
	if len(tail) != 3 {
		t.Fatalf("Expected tail of 3, got %d", len(tail))
	}
	if tail[0].WindowID != 1 || tail[2].WindowID != 3 {
		t.Errorf("Expected tail window ids [1..3], got [%d..%d]", tail[0].WindowID, tail[2].WindowID)
	}

	// 4. Unknown sources are never eligible.
	if tail := s.EligibleTail("other"); tail != nil {
		t.Error("Expected nil tail for unknown source")
	}
}

func TestStoreSpan(t *testing.T) {
	s := NewStore(2, 0, 0, 0)
	if s.Span("src") != 0 {
		t.Errorf("Expected span 0 for unknown source, got %d", s.Span("src"))
	}

	// Gaps count towards the span: ids 3 and 9 span 7 windows.
	s.Push("src", rec(3, 100, 3.9))
	s.Push("src", rec(9, 100, 9.9))
	if s.Span("src") != 7 {
		t.Errorf("Expected span 7, got %d", s.Span("src"))
	}

	if s.Sources() != 1 {
		t.Errorf("Expected 1 tracked source, got %d", s.Sources())
	}
}
