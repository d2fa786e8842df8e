// Package output persists batch run results to CSV or JSON files.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"LinkClassifier/internal/domain"
)

var csvHeader = []string{
	"url",
	"title",
	"original_list_id",
	"classified_list_id",
	"confidence",
	"reasoning",
	"state",
	"timestamp",
}

// WriteSummary saves a batch summary to path, picking the format from the
// file extension: .json produces a JSON report, everything else CSV.
func WriteSummary(path string, summary domain.BatchSummary) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return writeJSON(path, summary)
	}
	return writeCSV(path, summary)
}

// writeCSV emits one row per applied candidate; skipped and failed links
// still get a row so the report accounts for every link in the run.
func writeCSV(path string, summary domain.BatchSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	stamp := time.Now().UTC().Format(time.RFC3339)
	for _, job := range summary.Jobs {
		if len(job.Applied) == 0 {
			reason := job.Reason
			if reason == "" {
				reason = domain.SkipNoClassification
			}
			row := []string{
				job.Link.URL,
				job.Link.Title,
				strconv.Itoa(job.InputListID),
				"",
				"",
				reason,
				string(job.State),
				stamp,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
			continue
		}
		for _, candidate := range job.Applied {
			row := []string{
				job.Link.URL,
				job.Link.Title,
				strconv.Itoa(job.InputListID),
				strconv.Itoa(candidate.ListID),
				strconv.FormatFloat(candidate.Confidence, 'f', -1, 64),
				candidate.Reasoning,
				string(job.State),
				stamp,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

type jsonJob struct {
	URL             string             `json:"url"`
	Title           string             `json:"title"`
	OriginalListID  int                `json:"original_list_id"`
	State           string             `json:"state"`
	Reason          string             `json:"reason,omitempty"`
	Classifications []domain.Candidate `json:"classifications"`
	Error           string             `json:"error,omitempty"`
}

type jsonReport struct {
	Timestamp  string              `json:"timestamp"`
	TotalLinks int                 `json:"total_links"`
	Summary    domain.BatchSummary `json:"summary"`
	Results    []jsonJob           `json:"results"`
}

func writeJSON(path string, summary domain.BatchSummary) error {
	report := jsonReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		TotalLinks: summary.Total,
		Summary:    summary,
		Results:    make([]jsonJob, 0, len(summary.Jobs)),
	}
	for _, job := range summary.Jobs {
		entry := jsonJob{
			URL:             job.Link.URL,
			Title:           job.Link.Title,
			OriginalListID:  job.InputListID,
			State:           string(job.State),
			Reason:          job.Reason,
			Classifications: job.Applied,
		}
		if entry.Classifications == nil {
			entry.Classifications = []domain.Candidate{}
		}
		if job.Err != nil {
			entry.Error = job.Err.Error()
		}
		report.Results = append(report.Results, entry)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
