package history

import "NetSentry/internal/model"

// Store keeps a bounded, ordered sequence of finalized window records per
// source. Entries are trimmed from the front on every push: first by
// staleness against the newest record, then by the hard size cap. The
// store is exclusively owned by one pipeline shard and needs no locking.
type Store struct {
	historyMin     int
	historySize    int     // 0 = unbounded
	historyTimeout float64 // seconds, 0 = no timeout
	packetsMin     uint64

	entries map[string][]*model.WindowRecord
}

// NewStore creates a history store with the given retention bounds.
func NewStore(historyMin, historySize int, historyTimeout float64, packetsMin int) *Store {
	return &Store{
		historyMin:     historyMin,
		historySize:    historySize,
		historyTimeout: historyTimeout,
		packetsMin:     uint64(packetsMin),
		entries:        make(map[string][]*model.WindowRecord),
	}
}

// Push appends a finalized record to the source's history and applies the
// eviction policy. Window ids per source strictly increase because the
// aggregator finalizes them in order.
func (s *Store) Push(src string, rec *model.WindowRecord) {
	entry := append(s.entries[src], rec)

	if s.historyTimeout > 0 {
		newestEnd := entry[len(entry)-1].TstampEnd
		cut := 0
		for cut < len(entry)-1 && newestEnd-entry[cut].TstampEnd > s.historyTimeout {
			cut++
		}
		entry = entry[cut:]
	}

	if s.historySize > 0 && len(entry) > s.historySize {
		entry = entry[len(entry)-s.historySize:]
	}

	s.entries[src] = entry
}

// EligibleTail returns the historyMin most recent records for the source,
// or nil when the source is not yet eligible: the entry must hold at least
// historyMin records and the newest record must meet the packetsMin floor.
func (s *Store) EligibleTail(src string) []*model.WindowRecord {
	entry := s.entries[src]
	if len(entry) < s.historyMin {
		return nil
	}
	if entry[len(entry)-1].PktsTotal < s.packetsMin {
		return nil
	}
	return entry[len(entry)-s.historyMin:]
}

// Span returns the full recorded window-id span of the source's entry,
// used as the denominator of the inter-window activity ratio.
func (s *Store) Span(src string) int64 {
	entry := s.entries[src]
	if len(entry) == 0 {
		return 0
	}
	return entry[len(entry)-1].WindowID - entry[0].WindowID + 1
}

// Len returns the number of retained records for the source.
func (s *Store) Len(src string) int {
	return len(s.entries[src])
}

// Sources returns the number of sources with retained history.
func (s *Store) Sources() int {
	return len(s.entries)
}
