package healthcheck

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CheckStatus is the outcome of one probe. StatusError marks a check that
// could not run to completion, as opposed to one that ran and failed.
type CheckStatus string

const (
	StatusPassed CheckStatus = "passed"
	StatusFailed CheckStatus = "failed"
	StatusError  CheckStatus = "error"
)

// Overall server verdicts. All checks passed, some passed, or none passed.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type CheckResult struct {
	Status    CheckStatus `json:"status"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// Results aggregates one suite run. Tests holds every executed check by name;
// order remembers execution order for the printed summary, since the JSON map
// does not.
type Results struct {
	Timestamp     time.Time              `json:"timestamp"`
	BaseURL       string                 `json:"base_url"`
	StoreID       string                 `json:"store_id"`
	Tests         map[string]CheckResult `json:"tests"`
	OverallStatus string                 `json:"overall_status"`
	PassedTests   int                    `json:"passed_tests"`
	TotalTests    int                    `json:"total_tests"`
	Interrupted   bool                   `json:"interrupted,omitempty"`

	order []string
}

func newResults(baseURL, storeID string, totalTests int) *Results {
	return &Results{
		Timestamp:  time.Now(),
		BaseURL:    baseURL,
		StoreID:    storeID,
		Tests:      make(map[string]CheckResult, totalTests),
		TotalTests: totalTests,
	}
}

func (r *Results) record(name string, status CheckStatus, message string) {
	r.Tests[name] = CheckResult{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	r.order = append(r.order, name)

	if status == StatusPassed {
		r.PassedTests++
	}
}

func (r *Results) finalize() {
	switch {
	case r.PassedTests == r.TotalTests:
		r.OverallStatus = StatusHealthy
	case r.PassedTests > 0:
		r.OverallStatus = StatusDegraded
	default:
		r.OverallStatus = StatusUnhealthy
	}
}

// ExitCode maps the overall verdict to the process exit code operators and
// scripts key off: 0 healthy, 1 degraded, 2 unhealthy.
func (r *Results) ExitCode() int {
	switch r.OverallStatus {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Save writes the results document as indented JSON.
func (r *Results) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal health results")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write health results")
	}

	return nil
}

// PrintSummary writes the banner block operators read after a run, with the
// checks in execution order.
func (r *Results) PrintSummary(w io.Writer) {
	line := strings.Repeat("=", 60)

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "BTCPay Server Health Check Summary")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Server:         %s\n", r.BaseURL)
	fmt.Fprintf(w, "Store ID:       %s\n", r.StoreID)
	fmt.Fprintf(w, "Overall Status: %s\n", strings.ToUpper(r.OverallStatus))
	fmt.Fprintf(w, "Tests Passed:   %d/%d\n", r.PassedTests, r.TotalTests)
	fmt.Fprintf(w, "Timestamp:      %s\n", r.Timestamp.Format(time.RFC1123))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Detailed Results:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, name := range r.order {
		result := r.Tests[name]
		fmt.Fprintf(w, "%s %s: %s\n", statusTag(result.Status), name, result.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	switch r.OverallStatus {
	case StatusHealthy:
		fmt.Fprintln(w, "BTCPay Server is healthy and ready for use.")
	case StatusDegraded:
		fmt.Fprintln(w, "BTCPay Server is partially functional. Some features may not work.")
	default:
		fmt.Fprintln(w, "BTCPay Server is unhealthy. Please check configuration and server status.")
	}
}

func statusTag(status CheckStatus) string {
	switch status {
	case StatusPassed:
		return "[PASS]"
	case StatusFailed:
		return "[FAIL]"
	default:
		return "[ERROR]"
	}
}
