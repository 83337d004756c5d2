package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// StepFunc executes one stage of the pipeline.
type StepFunc func(ctx context.Context) error

// Step is one stage of an end to end run. Title is the banner line shown
// when the step starts, Name the short identifier used in logs and
// summaries.
type Step struct {
	Name  string
	Title string
	Skip  bool
	Run   StepFunc
}

// SkipFlags mirrors the per step skip switches of the workflow command.
type SkipFlags struct {
	Addresses bool
	Invoices  bool
	Payments  bool
}

// StandardSteps assembles the address, invoice and payment population steps
// in their fixed order.
func StandardSteps(addresses, invoices, payments StepFunc, skip SkipFlags) []Step {
	return []Step{
		{Name: "addresses", Title: "Generating Bitcoin addresses", Skip: skip.Addresses, Run: addresses},
		{Name: "invoices", Title: "Generating BTCPay invoices", Skip: skip.Invoices, Run: invoices},
		{Name: "payments", Title: "Populating payment tables", Skip: skip.Payments, Run: payments},
	}
}

// Summary reports how far a run got.
type Summary struct {
	CompletedSteps int
	TotalSteps     int
	FailedStep     string
	Skipped        []string
	Interrupted    bool
}

// Runner executes steps in order, stopping at the first failure.
type Runner struct {
	logger *logger.Logger
	out    io.Writer
	steps  []Step
}

func New(l *logger.Logger, out io.Writer) *Runner {
	return &Runner{logger: l, out: out}
}

func (r *Runner) Add(step Step) {
	r.steps = append(r.steps, step)
}

// Plan prints the steps a run would execute without running them. Step
// numbers are positional, so a skipped step keeps its slot for the others.
func (r *Runner) Plan() {
	fmt.Fprintln(r.out, "DRY RUN - would execute the following steps:")

	listed := 0
	for i, step := range r.steps {
		if step.Skip {
			continue
		}
		listed++
		fmt.Fprintf(r.out, "%d. %s\n", i+1, step.Title)
	}
	if listed == 0 {
		fmt.Fprintln(r.out, "(every step is skipped, nothing to do)")
	}
}

// Run executes every non skipped step in order. The first failure stops the
// run, a canceled context stops it between steps. The summary is printed in
// both cases.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	for _, step := range r.steps {
		if !step.Skip {
			summary.TotalSteps++
		}
	}

	var failure error
	for i, step := range r.steps {
		if step.Skip {
			r.logger.Info("[Run] skipping step", map[string]string{"step": step.Name})
			summary.Skipped = append(summary.Skipped, step.Name)
			continue
		}
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			failure = err
			break
		}

		r.banner(fmt.Sprintf("STEP %d: %s", i+1, step.Title))
		if err := step.Run(ctx); err != nil {
			summary.FailedStep = step.Name
			failure = errors.Wrapf(err, "step %s failed", step.Name)
			r.logger.Error("[Run] step failed, stopping workflow", map[string]string{
				"step":  step.Name,
				"error": err.Error(),
			})
			break
		}
		summary.CompletedSteps++
		r.logger.Info("[Run] step complete", map[string]string{"step": step.Name})
	}

	r.printSummary(summary)
	return summary, failure
}

func (r *Runner) banner(title string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out, title)
	fmt.Fprintln(r.out, line)
}

func (r *Runner) printSummary(s *Summary) {
	fmt.Fprintln(r.out)
	r.banner("WORKFLOW SUMMARY")
	fmt.Fprintf(r.out, "Completed steps: %d/%d\n", s.CompletedSteps, s.TotalSteps)
	for _, name := range s.Skipped {
		fmt.Fprintf(r.out, "Skipped: %s\n", name)
	}

	switch {
	case s.Interrupted:
		fmt.Fprintln(r.out, "Workflow interrupted")
	case s.FailedStep != "":
		fmt.Fprintln(r.out, "Workflow completed with errors")
	default:
		fmt.Fprintln(r.out, "Workflow completed successfully!")
	}
}
