package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// ExportConfig names the artifact files one run writes. Kind is the plural
// noun the run produces ("invoices", "payments", "addresses"); it becomes
// both the filename stem and the records key inside the files.
type ExportConfig struct {
	Dir         string
	Kind        string
	SummaryName string

	// Metadata is merged into the metadata block of the success and failure
	// files. Configuration becomes the summary's configuration block.
	Metadata      map[string]any
	Configuration map[string]any
}

// ExportedFiles lists the artifacts a run actually wrote. SuccessFile and
// FailedFile stay empty when the run had no matching outcomes.
type ExportedFiles struct {
	SuccessFile string
	FailedFile  string
	SummaryFile string
}

type failureRecord struct {
	Index     int       `json:"index"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Detail    any       `json:"detail,omitempty"`
}

// Export writes the run's artifacts: a file of successful records, a file of
// failure records, and a summary of the final statistics. The success and
// failure files are only written when non-empty; the summary always is.
// Partial reports from interrupted runs export the same way.
func Export(report *Report, cfg ExportConfig) (*ExportedFiles, error) {
	if cfg.SummaryName == "" {
		cfg.SummaryName = "generation_summary"
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("20060102_150405")
	files := &ExportedFiles{}

	succeeded := report.Succeeded()
	if len(succeeded) > 0 {
		records := make([]any, 0, len(succeeded))
		for _, o := range succeeded {
			records = append(records, o.Payload)
		}

		doc := map[string]any{
			"metadata": metadataBlock(len(records), cfg.Metadata),
			cfg.Kind:   records,
		}

		path := filepath.Join(cfg.Dir, "successful_"+cfg.Kind+"_"+timestamp+".json")
		if err := writeJSONFile(path, doc); err != nil {
			return nil, err
		}
		files.SuccessFile = path
	}

	failures := report.Failures()
	if len(failures) > 0 {
		records := make([]failureRecord, 0, len(failures))
		for _, o := range failures {
			records = append(records, failureRecord{
				Index:     o.Index,
				Error:     o.Error,
				Timestamp: o.Timestamp,
				Detail:    o.Payload,
			})
		}

		doc := map[string]any{
			"metadata":          metadataBlock(len(records), cfg.Metadata),
			"failed_" + cfg.Kind: records,
		}

		path := filepath.Join(cfg.Dir, "failed_"+cfg.Kind+"_"+timestamp+".json")
		if err := writeJSONFile(path, doc); err != nil {
			return nil, err
		}
		files.FailedFile = path
	}

	summary := map[string]any{
		"statistics": map[string]any{
			"total_requested":      report.Stats.TotalRequested,
			"successful":           report.Stats.Successful,
			"failed":               report.Stats.Failed,
			"start_time":           report.Stats.StartTime.Format(time.RFC3339),
			"end_time":             report.Stats.EndTime.Format(time.RFC3339),
			"success_rate_percent": report.Stats.SuccessRatePercent(),
			"interrupted":          report.Stats.Interrupted,
		},
		"configuration": cfg.Configuration,
	}

	path := filepath.Join(cfg.Dir, cfg.SummaryName+"_"+timestamp+".json")
	if err := writeJSONFile(path, summary); err != nil {
		return nil, err
	}
	files.SummaryFile = path

	return files, nil
}

func metadataBlock(count int, extra map[string]any) map[string]any {
	meta := map[string]any{
		"total_count":  count,
		"generated_at": time.Now().Format(time.RFC3339),
	}
	for k, v := range extra {
		meta[k] = v
	}

	return meta
}

func writeJSONFile(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal "+filepath.Base(path))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write "+filepath.Base(path))
	}

	return nil
}
