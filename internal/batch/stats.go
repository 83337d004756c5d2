package batch

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Outcome records the result of exactly one unit of work. Index is 1-based
// and unique across the run.
type Outcome struct {
	Index     int       `json:"index"`
	Success   bool      `json:"success"`
	Payload   any       `json:"payload,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStats mirrors the counters a run keeps. They are only advanced at batch
// completion points, so no locking is needed around them.
type RunStats struct {
	TotalRequested int       `json:"total_requested"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Interrupted    bool      `json:"interrupted,omitempty"`
}

func (s RunStats) SuccessRatePercent() float64 {
	if s.TotalRequested == 0 {
		return 0
	}

	return float64(s.Successful) / float64(s.TotalRequested) * 100
}

func (s RunStats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// PerSecond is the successful-unit throughput over the whole run.
func (s RunStats) PerSecond() float64 {
	secs := s.Duration().Seconds()
	if secs <= 0 {
		return 0
	}

	return float64(s.Successful) / secs
}

// Report is the full bookkeeping of one run: final counters plus one outcome
// per attempted unit, in index order.
type Report struct {
	Stats    RunStats  `json:"stats"`
	Outcomes []Outcome `json:"outcomes"`
}

func newReport(total int) *Report {
	return &Report{
		Stats: RunStats{
			TotalRequested: total,
			StartTime:      time.Now(),
		},
		Outcomes: make([]Outcome, 0, total),
	}
}

// absorb folds one completed batch into the report.
func (r *Report) absorb(outcomes []Outcome) {
	for _, o := range outcomes {
		if o.Success {
			r.Stats.Successful++
		} else {
			r.Stats.Failed++
		}
	}

	r.Outcomes = append(r.Outcomes, outcomes...)
}

func (r *Report) finish() {
	r.Stats.EndTime = time.Now()
}

// Succeeded returns the outcomes of units that completed, in index order.
func (r *Report) Succeeded() []Outcome {
	out := make([]Outcome, 0, r.Stats.Successful)
	for _, o := range r.Outcomes {
		if o.Success {
			out = append(out, o)
		}
	}

	return out
}

// Failures returns the outcomes of units that did not complete, in index order.
func (r *Report) Failures() []Outcome {
	out := make([]Outcome, 0, r.Stats.Failed)
	for _, o := range r.Outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}

	return out
}

// PrintSummary writes the banner block operators read at the end of a run.
func (r *Report) PrintSummary(w io.Writer, title string) {
	line := strings.Repeat("=", 60)

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Total Requested:    %d\n", r.Stats.TotalRequested)
	fmt.Fprintf(w, "Successful:         %d\n", r.Stats.Successful)
	fmt.Fprintf(w, "Failed:             %d\n", r.Stats.Failed)
	fmt.Fprintf(w, "Success Rate:       %.1f%%\n", r.Stats.SuccessRatePercent())
	fmt.Fprintf(w, "Duration:           %s\n", r.Stats.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Rate:               %.2f units/second\n", r.Stats.PerSecond())
	if r.Stats.Interrupted {
		fmt.Fprintln(w, "Run interrupted; counts cover attempted units only.")
	}
	fmt.Fprintln(w, line)
}

func successOutcome(index int, payload any) Outcome {
	return Outcome{
		Index:     index,
		Success:   true,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

func failureOutcome(index int, payload any, err error) Outcome {
	return Outcome{
		Index:     index,
		Success:   false,
		Payload:   payload,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
}
