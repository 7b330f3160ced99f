package window

import (
	"math"
	"math/rand"
	"sort"

	"NetSentry/internal/model"
)

// bucket accumulates per-packet observations for one (source, window id)
// pair while the window is open.
type bucket struct {
	windowID int64

	pktsTotal  uint64
	bytesTotal uint64

	tstampStart float64
	tstampEnd   float64
	lastArrival float64

	arrivals RunningStat
	sizes    RunningStat

	pktSizeMin uint32
	pktSizeMax uint32

	tcpCount  uint64
	udpCount  uint64
	icmpCount uint64
	fragCount uint64

	hdrRatioSum float64

	ports    *Reservoir
	portSet  map[uint16]struct{}
	connPkts map[string]uint64
}

// Aggregator turns a per-source packet stream into finalized window
// records. All state is exclusively owned by the caller's goroutine; the
// pipeline shards sources across aggregators instead of sharing one.
type Aggregator struct {
	windowLength float64
	samplesSize  int
	rng          *rand.Rand

	// One open bucket per source; window ids per source only move forward.
	open map[string]*bucket

	lateDropped uint64
}

// NewAggregator creates an aggregator with fixed window length in seconds
// and a seeded generator for reservoir sampling.
func NewAggregator(windowLength float64, samplesSize int, seed int64) *Aggregator {
	return &Aggregator{
		windowLength: windowLength,
		samplesSize:  samplesSize,
		rng:          rand.New(rand.NewSource(seed)),
		open:         make(map[string]*bucket),
	}
}

// Observe folds one packet into its source's open window. When the packet
// crosses the window boundary for that source, the previous window is
// finalized, removed from the open set, and returned; otherwise Observe
// returns nil. Packets older than the source's open window target an
// already-finalized (immutable) window and are dropped and counted.
func (a *Aggregator) Observe(pkt *model.PacketRecord) *model.WindowRecord {
	windowID := int64(math.Floor(pkt.Timestamp / a.windowLength))

	b, ok := a.open[pkt.SrcAddr]
	if ok && windowID < b.windowID {
		a.lateDropped++
		return nil
	}

	var finalized *model.WindowRecord
	if ok && windowID > b.windowID {
		finalized = a.finalize(b)
		ok = false
	}
	if !ok {
		b = a.newBucket(windowID)
		a.open[pkt.SrcAddr] = b
	}

	b.add(pkt)
	return finalized
}

// Finalized pairs a flushed window record with its source address.
type Finalized struct {
	Src    string
	Record *model.WindowRecord
}

// Flush finalizes every open bucket, emptying the open set. Records are
// returned in (window id, source) order so end-of-stream processing stays
// deterministic.
func (a *Aggregator) Flush() []Finalized {
	out := make([]Finalized, 0, len(a.open))
	for src, b := range a.open {
		out = append(out, Finalized{Src: src, Record: a.finalize(b)})
	}
	a.open = make(map[string]*bucket)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Record.WindowID != out[j].Record.WindowID {
			return out[i].Record.WindowID < out[j].Record.WindowID
		}
		return out[i].Src < out[j].Src
	})
	return out
}

// OpenWindows returns the number of currently open buckets.
func (a *Aggregator) OpenWindows() int {
	return len(a.open)
}

// LateDropped returns the number of packets dropped because their window
// had already been finalized.
func (a *Aggregator) LateDropped() uint64 {
	return a.lateDropped
}

func (a *Aggregator) newBucket(windowID int64) *bucket {
	return &bucket{
		windowID: windowID,
		ports:    NewReservoir(a.samplesSize, a.rng),
		portSet:  make(map[uint16]struct{}),
		connPkts: make(map[string]uint64),
	}
}

func (b *bucket) add(pkt *model.PacketRecord) {
	size := float64(pkt.Length)

	if b.pktsTotal == 0 {
		b.tstampStart = pkt.Timestamp
		b.pktSizeMin = uint32(pkt.Length)
		b.pktSizeMax = uint32(pkt.Length)
	} else {
		b.arrivals.Add(pkt.Timestamp - b.lastArrival)
		if uint32(pkt.Length) < b.pktSizeMin {
			b.pktSizeMin = uint32(pkt.Length)
		}
		if uint32(pkt.Length) > b.pktSizeMax {
			b.pktSizeMax = uint32(pkt.Length)
		}
	}

	b.pktsTotal++
	b.bytesTotal += uint64(pkt.Length)
	b.tstampEnd = pkt.Timestamp
	b.lastArrival = pkt.Timestamp

	b.sizes.Add(size)
	if pkt.Length > 0 {
		b.hdrRatioSum += float64(pkt.HeaderLen) / size
	}

	switch pkt.Proto {
	case model.ProtoTCP:
		b.tcpCount++
	case model.ProtoUDP:
		b.udpCount++
	case model.ProtoICMP:
		b.icmpCount++
	}
	if pkt.Fragment {
		b.fragCount++
	}

	b.ports.Add(pkt.SrcPort)
	b.portSet[pkt.SrcPort] = struct{}{}
	b.connPkts[pkt.ConnectionKey()]++
}

// finalize freezes a bucket into an immutable WindowRecord.
func (a *Aggregator) finalize(b *bucket) *model.WindowRecord {
	rec := &model.WindowRecord{
		WindowID:    b.windowID,
		PktsTotal:   b.pktsTotal,
		BytesTotal:  b.bytesTotal,
		TstampStart: b.tstampStart,
		TstampEnd:   b.tstampEnd,

		PktRate:  float64(b.pktsTotal) / a.windowLength,
		ByteRate: float64(b.bytesTotal) / a.windowLength,

		PktArrivalsAvg: b.arrivals.Mean(),
		PktArrivalsStd: b.arrivals.Std(),

		PktSizeMin: b.pktSizeMin,
		PktSizeMax: b.pktSizeMax,
		PktSizeAvg: b.sizes.Mean(),
		PktSizeStd: b.sizes.Std(),

		TCPPktCount:  b.tcpCount,
		UDPPktCount:  b.udpCount,
		ICMPPktCount: b.icmpCount,

		PortSrcUnique:  uint32(len(b.portSet)),
		PortSrcEntropy: normalizedEntropy(b.ports.Samples()),

		PktsFragCount: b.fragCount,
	}

	if b.pktsTotal > 0 {
		rec.HdrsPayloadRatioAvg = b.hdrRatioSum / float64(b.pktsTotal)
	}
	if len(b.connPkts) > 0 {
		rec.ConnPktsAvg = float64(b.pktsTotal) / float64(len(b.connPkts))
	}

	return rec
}
