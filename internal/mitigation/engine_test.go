package mitigation

import (
	"math"
	"testing"

	"NetSentry/internal/model"
)

func TestEngineAnomalousTransition(t *testing.T) {
	// 1. First packet pins FirstSeen; the source starts monitored.
	e := NewEngine(10, nil)
	if !e.Filter("10.0.0.1", 100.0) {
		t.Fatal("Unknown source must be allowed")
	}
	st, ok := e.SourceStats("10.0.0.1")
	if !ok || st.FirstSeen != 100.0 || st.State != Monitored {
		t.Fatalf("Unexpected initial stats: %+v", st)
	}

	// 2. A benign verdict only counts.
	e.Classify("10.0.0.1", 105.0, model.Verdict{Anomalous: false, Loss: 0.1})
	st, _ = e.SourceStats("10.0.0.1")
	if st.State != Monitored || st.DetectionsNeg != 1 {
		t.Fatalf("Benign verdict must not change state: %+v", st)
	}

	// 3. The first anomalous verdict transitions the source and pins the
	// detection latency.
	e.Classify("10.0.0.1", 106.0, model.Verdict{Anomalous: true, Loss: 0.9})
	st, _ = e.SourceStats("10.0.0.1")
	if st.State != Anomalous {
		t.Fatal("Expected anomalous state after positive verdict")
	}
	if math.Abs(st.DetectedAfter-6.0) > 1e-9 {
		t.Errorf("Expected detected_after 6.0, got %v", st.DetectedAfter)
	}
	if st.DetectionsPos != 1 || st.LastLoss != 0.9 {
		t.Errorf("Unexpected detection counters: %+v", st)
	}
	if !e.Denylist().Contains("10.0.0.1") {
		t.Error("Anomalous source must be denylisted")
	}

	// 4. The transition is terminal: further verdicts never revert it and
	// detected_after keeps its first value.
	e.Classify("10.0.0.1", 110.0, model.Verdict{Anomalous: true, Loss: 0.8})
	e.Classify("10.0.0.1", 111.0, model.Verdict{Anomalous: false, Loss: 0.2})
	st, _ = e.SourceStats("10.0.0.1")
	if st.State != Anomalous || math.Abs(st.DetectedAfter-6.0) > 1e-9 {
		t.Errorf("State must be terminal with fixed detection latency: %+v", st)
	}
}

func TestEngineDeniesAfterDetection(t *testing.T) {
	// 1. Allow some traffic, then denylist the source.
	e := NewEngine(10, nil)
	for i := 0; i < 5; i++ {
		e.Filter("10.0.0.1", float64(i))
	}
	e.Classify("10.0.0.1", 10.0, model.Verdict{Anomalous: true, Loss: 1.0})

	// 2. Every subsequent packet is denied; allowed stays frozen.
	for i := 0; i < 1000; i++ {
		if e.Filter("10.0.0.1", 10.0+float64(i)) {
			t.Fatal("Denylisted source must not be allowed")
		}
	}
	st, _ := e.SourceStats("10.0.0.1")
	if st.PktsAllowed != 5 {
		t.Errorf("Expected pkts_allowed frozen at 5, got %d", st.PktsAllowed)
	}
	if st.PktsDenied != 1000 {
		t.Errorf("Expected pkts_denied 1000, got %d", st.PktsDenied)
	}
}

func TestEngineCapacityEviction(t *testing.T) {
	// 1. Detect three sources against a denylist of two.
	e := NewEngine(2, nil)
	for i, src := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		e.Filter(src, float64(i))
		e.Classify(src, float64(10+i), model.Verdict{Anomalous: true, Loss: 1.0})
	}

	// 2. The oldest detection was evicted and is allowed again, but its
	// state stays anomalous for observability.
	if e.Denylist().Contains("10.0.0.1") {
		t.Error("Oldest detection must have been evicted")
	}
	if !e.Filter("10.0.0.1", 20.0) {
		t.Error("Evicted source must be allowed again")
	}
	st, _ := e.SourceStats("10.0.0.1")
	if st.State != Anomalous {
		t.Error("Evicted source keeps its anomalous state")
	}

	// 3. A repeated positive verdict re-denylists the evicted source.
	e.Classify("10.0.0.1", 21.0, model.Verdict{Anomalous: true, Loss: 1.0})
	if !e.Denylist().Contains("10.0.0.1") {
		t.Error("Re-detected source must be denied again")
	}
	if e.Denylist().Len() != 2 {
		t.Errorf("Denylist must stay at capacity 2, got %d", e.Denylist().Len())
	}
}

func TestEngineSummary(t *testing.T) {
	// 1. Two detected sources, one benign, against ground truth labelling
	// one detection correct and one attacker missed.
	e := NewEngine(10, nil)
	e.Filter("attacker", 0)
	e.Filter("noisy", 0)
	e.Filter("benign", 0)
	e.Filter("missed", 0)
	e.Classify("attacker", 5, model.Verdict{Anomalous: true, Loss: 1.0})
	e.Classify("noisy", 6, model.Verdict{Anomalous: true, Loss: 0.9})
	e.Classify("benign", 7, model.Verdict{Anomalous: false, Loss: 0.1})

	attackers := map[string]bool{"attacker": true, "missed": true}
	sum := e.Summary(attackers)

	// 2. Confusion matrix checks out.
	if sum.Sources != 4 || sum.Denylisted != 2 {
		t.Errorf("Expected 4 sources with 2 denylisted, got %d/%d", sum.Sources, sum.Denylisted)
	}
	if sum.TruePositives != 1 || sum.FalsePositives != 1 || sum.TrueNegatives != 1 || sum.FalseNegatives != 1 {
		t.Errorf("Unexpected confusion matrix: %+v", sum)
	}
}
