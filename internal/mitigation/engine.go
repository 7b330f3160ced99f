package mitigation

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"NetSentry/internal/metrics"
	"NetSentry/internal/model"
)

// State is the per-source mitigation state. The transition to Anomalous is
// terminal for the remainder of the run.
type State uint8

const (
	Monitored State = iota
	Anomalous
)

// String returns the state name used in reports and the HTTP API.
func (s State) String() string {
	if s == Anomalous {
		return "anomalous"
	}
	return "monitored"
}

// SourceStats carries the per-source mitigation counters. Enforcement is
// driven by denylist membership, not by State: an evicted source keeps its
// Anomalous state for observability but is allowed again until re-detected.
type SourceStats struct {
	State         State   `json:"state"`
	FirstSeen     float64 `json:"first_seen"`
	DetectedAfter float64 `json:"detected_after"`
	DetectionsPos uint64  `json:"detections_pos"`
	DetectionsNeg uint64  `json:"detections_neg"`
	PktsAllowed   uint64  `json:"pkts_allowed"`
	PktsDenied    uint64  `json:"pkts_denied"`
	LastLoss      float64 `json:"last_loss"`
}

// Summary is the end-of-run confusion-matrix style report across sources.
type Summary struct {
	Sources        int    `json:"sources"`
	Denylisted     int    `json:"denylisted"`
	TruePositives  int    `json:"true_positives"`
	FalsePositives int    `json:"false_positives"`
	TrueNegatives  int    `json:"true_negatives"`
	FalseNegatives int    `json:"false_negatives"`
	PktsAllowed    uint64 `json:"pkts_allowed"`
	PktsDenied     uint64 `json:"pkts_denied"`
}

// Mirror propagates denylist changes to an external store so enforcement
// can be shared across processing instances.
type Mirror interface {
	Add(ctx context.Context, src string, detectedAt float64) error
	Remove(ctx context.Context, src string) error
}

const statsShardCount = 256

// statsShard is one lock-striped slice of the per-source counter map.
type statsShard struct {
	mu    sync.Mutex
	stats map[string]*SourceStats
}

// Engine maintains the denylist and the per-source mitigation counters and
// answers the allow/deny decision for every packet. The counter map is
// sharded by source hash; the denylist has its own read-biased lock.
type Engine struct {
	shards   [statsShardCount]*statsShard
	denylist *Denylist
	mirror   Mirror
}

// NewEngine creates a mitigation engine with the given denylist capacity.
// mirror may be nil when no external denylist store is configured.
func NewEngine(denylistSize int, mirror Mirror) *Engine {
	e := &Engine{
		denylist: NewDenylist(denylistSize),
		mirror:   mirror,
	}
	for i := range e.shards {
		e.shards[i] = &statsShard{stats: make(map[string]*SourceStats)}
	}
	return e
}

// Filter records the allow/deny decision for one packet of the source and
// returns true when the packet is allowed. The first call for a source
// pins its FirstSeen timestamp, the base of the detection latency metric.
func (e *Engine) Filter(src string, timestamp float64) bool {
	denied := e.denylist.Contains(src)

	shard := e.shard(src)
	shard.mu.Lock()
	st, ok := shard.stats[src]
	if !ok {
		st = &SourceStats{FirstSeen: timestamp}
		shard.stats[src] = st
	}
	if denied {
		st.PktsDenied++
	} else {
		st.PktsAllowed++
	}
	shard.mu.Unlock()

	if denied {
		metrics.PacketsDenied.Inc()
	} else {
		metrics.PacketsAllowed.Inc()
	}
	return !denied
}

// Classify applies one scorer verdict for the source. at is the stream
// timestamp the verdict refers to (the newest packet of the scored tail).
func (e *Engine) Classify(src string, at float64, v model.Verdict) {
	shard := e.shard(src)
	shard.mu.Lock()
	st, ok := shard.stats[src]
	if !ok {
		// Verdicts always follow packets, but stay safe on the boundary.
		st = &SourceStats{FirstSeen: at}
		shard.stats[src] = st
	}
	st.LastLoss = v.Loss

	if !v.Anomalous {
		st.DetectionsNeg++
		shard.mu.Unlock()
		return
	}

	st.DetectionsPos++
	firstDetection := st.State == Monitored
	if firstDetection {
		st.State = Anomalous
		st.DetectedAfter = at - st.FirstSeen
	}
	shard.mu.Unlock()

	evicted, inserted := e.denylist.Add(src, at)
	if inserted {
		metrics.DenylistSize.Set(float64(e.denylist.Len()))
		if firstDetection {
			log.Printf("Source %s classified as attack (loss %.4f), denylisted", src, v.Loss)
		}
	}
	e.propagate(src, at, evicted, inserted)
}

// propagate mirrors denylist changes to the external store, if configured.
func (e *Engine) propagate(src string, at float64, evicted string, inserted bool) {
	if e.mirror == nil || !inserted {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := e.mirror.Add(ctx, src, at); err != nil {
		log.Printf("Failed to mirror denylist insert for %s: %v", src, err)
	}
	if evicted != "" {
		if err := e.mirror.Remove(ctx, evicted); err != nil {
			log.Printf("Failed to mirror denylist eviction for %s: %v", evicted, err)
		}
	}
}

// Denylist exposes the engine's denylist for the HTTP API.
func (e *Engine) Denylist() *Denylist {
	return e.denylist
}

// SourceStats returns a copy of one source's counters.
func (e *Engine) SourceStats(src string) (SourceStats, bool) {
	shard := e.shard(src)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if st, ok := shard.stats[src]; ok {
		return *st, true
	}
	return SourceStats{}, false
}

// Snapshot returns a copy of all per-source counters.
func (e *Engine) Snapshot() map[string]SourceStats {
	out := make(map[string]SourceStats)
	for _, shard := range e.shards {
		shard.mu.Lock()
		for src, st := range shard.stats {
			out[src] = *st
		}
		shard.mu.Unlock()
	}
	return out
}

// Summary builds the confusion-matrix report. attackers holds the labelled
// attacker addresses when ground truth is available; with no labels only
// the positive columns are meaningful.
func (e *Engine) Summary(attackers map[string]bool) Summary {
	var sum Summary
	for src, st := range e.Snapshot() {
		sum.Sources++
		sum.PktsAllowed += st.PktsAllowed
		sum.PktsDenied += st.PktsDenied

		detected := st.State == Anomalous
		if detected {
			sum.Denylisted++
		}
		switch {
		case detected && attackers[src]:
			sum.TruePositives++
		case detected && !attackers[src]:
			sum.FalsePositives++
		case !detected && attackers[src]:
			sum.FalseNegatives++
		default:
			sum.TrueNegatives++
		}
	}
	return sum
}

func (e *Engine) shard(src string) *statsShard {
	hasher := fnv.New32a()
	hasher.Write([]byte(src))
	return e.shards[hasher.Sum32()%statsShardCount]
}
