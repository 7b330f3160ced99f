package export

import (
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"NetSentry/internal/mitigation"
)

func TestWriteReport(t *testing.T) {
	// 1. Write a report with one detected and one monitored source.
	rootDir := t.TempDir()
	w := NewReportWriter(rootDir)

	stats := map[string]mitigation.SourceStats{
		"10.0.0.1": {State: mitigation.Anomalous, FirstSeen: 10, DetectedAfter: 6, DetectionsPos: 3, PktsAllowed: 90, PktsDenied: 500},
		"10.0.0.2": {State: mitigation.Monitored, FirstSeen: 12, DetectionsNeg: 4, PktsAllowed: 40},
	}
	summary := mitigation.Summary{
		Sources:     2,
		Denylisted:  1,
		PktsAllowed: 130,
		PktsDenied:  500,
	}
	if err := w.WriteReport(stats, summary); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	// 2. Exactly one timestamped report directory was created.
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		t.Fatalf("Failed to read report root: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Fatalf("Expected one report directory, got %v", entries)
	}
	reportDir := filepath.Join(rootDir, entries[0].Name())

	// 3. The gob file round-trips the per-source stats.
	statsFile, err := os.Open(filepath.Join(reportDir, "sources.dat"))
	if err != nil {
		t.Fatalf("Failed to open sources.dat: %v", err)
	}
	defer statsFile.Close()

	var decoded map[string]mitigation.SourceStats
	if err := gob.NewDecoder(statsFile).Decode(&decoded); err != nil {
		t.Fatalf("Failed to decode sources.dat: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 decoded sources, got %d", len(decoded))
	}
	if got := decoded["10.0.0.1"]; got.PktsDenied != 500 || got.State != mitigation.Anomalous {
		t.Errorf("Decoded stats mismatch: %+v", got)
	}

	// 4. The JSON summary matches what was written.
	summaryData, err := os.ReadFile(filepath.Join(reportDir, "summary.json"))
	if err != nil {
		t.Fatalf("Failed to read summary.json: %v", err)
	}
	var decodedSummary mitigation.Summary
	if err := json.Unmarshal(summaryData, &decodedSummary); err != nil {
		t.Fatalf("Failed to unmarshal summary.json: %v", err)
	}
	if decodedSummary != summary {
		t.Errorf("Summary mismatch: expected %+v, got %+v", summary, decodedSummary)
	}
}
