package export

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"NetSentry/internal/mitigation"
)

// ReportWriter persists the end-of-run mitigation state to disk: the
// per-source counters as a gob file plus a human-readable summary.json.
type ReportWriter struct {
	rootPath string
}

// NewReportWriter creates a writer rooted at the given directory.
func NewReportWriter(rootPath string) *ReportWriter {
	return &ReportWriter{rootPath: rootPath}
}

// WriteReport serializes the per-source statistics and the confusion
// matrix summary into a timestamped directory under the root path.
func (w *ReportWriter) WriteReport(stats map[string]mitigation.SourceStats, summary mitigation.Summary) error {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	reportDir := filepath.Join(w.rootPath, timestamp)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	statsPath := filepath.Join(reportDir, "sources.dat")
	statsFile, err := os.Create(statsPath)
	if err != nil {
		return fmt.Errorf("failed to create report file '%s': %w", statsPath, err)
	}
	defer statsFile.Close()

	encoder := gob.NewEncoder(statsFile)
	if err := encoder.Encode(stats); err != nil {
		return fmt.Errorf("failed to encode source stats to gob: %w", err)
	}

	summaryPath := filepath.Join(reportDir, "summary.json")
	summaryFile, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	return nil
}
