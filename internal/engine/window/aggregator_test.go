package window

import (
	"math"
	"testing"

	"NetSentry/internal/model"
)

func pkt(src string, ts float64, length int, port uint16, proto model.TransportProto) *model.PacketRecord {
	return &model.PacketRecord{
		Timestamp: ts,
		Length:    length,
		SrcAddr:   src,
		DstAddr:   "10.0.0.254",
		SrcPort:   port,
		DstPort:   80,
		Proto:     proto,
		HeaderLen: 40,
	}
}

func TestAggregatorBoundaryFinalization(t *testing.T) {
	// 1. Three packets inside window 0 keep the window open.
	agg := NewAggregator(1.0, 40, 1)
	src := "192.168.0.1"
	for _, ts := range []float64{0.1, 0.5, 0.9} {
		if rec := agg.Observe(pkt(src, ts, 100, 1234, model.ProtoTCP)); rec != nil {
			t.Fatalf("Unexpected finalized window at t=%v", ts)
		}
	}
	if agg.OpenWindows() != 1 {
		t.Fatalf("Expected 1 open window, got %d", agg.OpenWindows())
	}

	// 2. The first packet of window 1 finalizes window 0.
	rec := agg.Observe(pkt(src, 1.2, 100, 1234, model.ProtoTCP))
	if rec == nil {
		t.Fatal("Expected a finalized window on boundary crossing")
	}
	if rec.WindowID != 0 {
		t.Errorf("Expected window id 0, got %d", rec.WindowID)
	}
	if rec.PktsTotal != 3 {
		t.Errorf("Expected 3 packets in finalized window, got %d", rec.PktsTotal)
	}
	if rec.TstampStart != 0.1 || rec.TstampEnd != 0.9 {
		t.Errorf("Expected span [0.1, 0.9], got [%v, %v]", rec.TstampStart, rec.TstampEnd)
	}

	// 3. The boundary packet itself lands in the new open window.
	if agg.OpenWindows() != 1 {
		t.Errorf("Expected 1 open window after finalization, got %d", agg.OpenWindows())
	}
}

func TestAggregatorLateDrop(t *testing.T) {
	// 1. Advance the source past window 0.
	agg := NewAggregator(1.0, 40, 1)
	src := "192.168.0.1"
	agg.Observe(pkt(src, 0.5, 100, 1234, model.ProtoTCP))
	agg.Observe(pkt(src, 1.5, 100, 1234, model.ProtoTCP))

	// 2. A packet targeting the finalized window is dropped and counted.
	if rec := agg.Observe(pkt(src, 0.7, 100, 1234, model.ProtoTCP)); rec != nil {
		t.Fatal("Late packet must not finalize a window")
	}
	if agg.LateDropped() != 1 {
		t.Errorf("Expected 1 late-dropped packet, got %d", agg.LateDropped())
	}

	// 3. The open window is unaffected by the late packet.
	rec := agg.Observe(pkt(src, 2.1, 100, 1234, model.ProtoTCP))
	if rec == nil || rec.PktsTotal != 1 {
		t.Fatalf("Expected window 1 finalized with 1 packet, got %+v", rec)
	}
}

func TestAggregatorRates(t *testing.T) {
	// pkt_rate and byte_rate divide by the configured window length, not
	// by the observed packet span.
	agg := NewAggregator(2.0, 40, 1)
	src := "192.168.0.1"
	for i := 0; i < 10; i++ {
		agg.Observe(pkt(src, 0.1*float64(i), 100, 1234, model.ProtoTCP))
	}

	out := agg.Flush()
	if len(out) != 1 {
		t.Fatalf("Expected 1 flushed window, got %d", len(out))
	}
	rec := out[0].Record
	if math.Abs(rec.PktRate-5.0) > 1e-9 {
		t.Errorf("Expected pkt rate 10/2=5, got %v", rec.PktRate)
	}
	if math.Abs(rec.ByteRate-500.0) > 1e-9 {
		t.Errorf("Expected byte rate 1000/2=500, got %v", rec.ByteRate)
	}
}

func TestAggregatorWindowStatistics(t *testing.T) {
	// 1. One window with known packet sizes and a protocol mix.
	agg := NewAggregator(1.0, 40, 1)
	src := "192.168.0.1"
	sizes := []int{2, 4, 4, 4, 5, 5, 7, 9}
	for i, size := range sizes {
		proto := model.ProtoTCP
		if i%2 == 1 {
			proto = model.ProtoUDP
		}
		agg.Observe(pkt(src, 0.1*float64(i), size, uint16(1000+i), proto))
	}

	out := agg.Flush()
	if len(out) != 1 {
		t.Fatalf("Expected 1 flushed window, got %d", len(out))
	}
	rec := out[0].Record

	// 2. Size statistics: mean 5, population std 2, min 2, max 9.
	if math.Abs(rec.PktSizeAvg-5.0) > 1e-9 {
		t.Errorf("Expected size avg 5, got %v", rec.PktSizeAvg)
	}
	if math.Abs(rec.PktSizeStd-2.0) > 1e-9 {
		t.Errorf("Expected size std 2, got %v", rec.PktSizeStd)
	}
	if rec.PktSizeMin != 2 || rec.PktSizeMax != 9 {
		t.Errorf("Expected size range [2, 9], got [%d, %d]", rec.PktSizeMin, rec.PktSizeMax)
	}

	// 3. Inter-arrival statistics over the 7 gaps of 0.1s each.
	if math.Abs(rec.PktArrivalsAvg-0.1) > 1e-9 {
		t.Errorf("Expected arrival avg 0.1, got %v", rec.PktArrivalsAvg)
	}
	if rec.PktArrivalsStd > 1e-9 {
		t.Errorf("Expected arrival std ~0 for constant gaps, got %v", rec.PktArrivalsStd)
	}

	// 4. Protocol counts and unique source ports.
	if rec.TCPPktCount != 4 || rec.UDPPktCount != 4 || rec.ICMPPktCount != 0 {
		t.Errorf("Unexpected protocol counts: tcp=%d udp=%d icmp=%d",
			rec.TCPPktCount, rec.UDPPktCount, rec.ICMPPktCount)
	}
	if rec.PortSrcUnique != 8 {
		t.Errorf("Expected 8 unique source ports, got %d", rec.PortSrcUnique)
	}

	// 5. Every packet used a distinct socket pair, so conn_pkts_avg is 1.
	if math.Abs(rec.ConnPktsAvg-1.0) > 1e-9 {
		t.Errorf("Expected conn pkts avg 1, got %v", rec.ConnPktsAvg)
	}
}

func TestAggregatorPerSourceIsolation(t *testing.T) {
	// A boundary crossing for one source must not finalize another
	// source's window.
	agg := NewAggregator(1.0, 40, 1)
	agg.Observe(pkt("10.0.0.1", 0.2, 100, 1234, model.ProtoTCP))
	agg.Observe(pkt("10.0.0.2", 0.3, 100, 1234, model.ProtoTCP))

	if rec := agg.Observe(pkt("10.0.0.1", 1.5, 100, 1234, model.ProtoTCP)); rec == nil {
		t.Fatal("Expected 10.0.0.1's window 0 to finalize")
	}
	if agg.OpenWindows() != 2 {
		t.Errorf("Expected 2 open windows, got %d", agg.OpenWindows())
	}
}

func TestAggregatorFlushOrder(t *testing.T) {
	// 1. Open windows for three sources across two window ids.
	agg := NewAggregator(1.0, 40, 1)
	agg.Observe(pkt("10.0.0.2", 1.1, 100, 1234, model.ProtoTCP))
	agg.Observe(pkt("10.0.0.1", 1.2, 100, 1234, model.ProtoTCP))
	agg.Observe(pkt("10.0.0.3", 0.5, 100, 1234, model.ProtoTCP))

	// 2. Flush returns (window id, source) order and empties the open set.
	out := agg.Flush()
	if len(out) != 3 {
		t.Fatalf("Expected 3 flushed windows, got %d", len(out))
	}
	wantSrc := []string{"10.0.0.3", "10.0.0.1", "10.0.0.2"}
	for i, fin := range out {
		if fin.Src != wantSrc[i] {
			t.Errorf("Flush order at %d: expected %s, got %s", i, wantSrc[i], fin.Src)
		}
	}
	if agg.OpenWindows() != 0 {
		t.Errorf("Expected empty open set after flush, got %d", agg.OpenWindows())
	}
}
