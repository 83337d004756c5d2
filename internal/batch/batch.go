package batch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// UnitOp performs one unit of work. index is 1-based and unique across the
// run. The returned payload is carried into the success artifact verbatim; a
// non-nil payload returned alongside an error becomes the failure detail.
type UnitOp func(ctx context.Context, index int) (any, error)

// BatchOp performs one whole batch as a single shared action, such as one
// funding transaction paying every address in the batch. indices are the
// 1-based unit indices the batch covers; the shared payload is recorded on
// every unit of the batch.
type BatchOp func(ctx context.Context, indices []int) (any, error)

// Executor drives bulk operations in contiguous batches with a fixed pause
// between batches. Every attempted unit produces exactly one Outcome; unit
// errors are recorded and the run keeps going.
type Executor struct {
	logger    *logger.Logger
	batchSize int
	delay     time.Duration
}

func New(l *logger.Logger, batchSize int, delay time.Duration) *Executor {
	return &Executor{
		logger:    l,
		batchSize: batchSize,
		delay:     delay,
	}
}

// Span is a half-open range of 0-based unit offsets covered by one batch.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

// Indices lists the 1-based unit indices the span covers.
func (s Span) Indices() []int {
	indices := make([]int, 0, s.Len())
	for offset := s.Start; offset < s.End; offset++ {
		indices = append(indices, offset+1)
	}

	return indices
}

// Partition splits total units into contiguous spans of at most batchSize.
// Spans never overlap and cover [0, total) exactly; only the last span may be
// short.
func Partition(total, batchSize int) []Span {
	spans := make([]Span, 0, (total+batchSize-1)/batchSize)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		spans = append(spans, Span{Start: start, End: end})
	}

	return spans
}

// Run executes op once per unit, sequentially within each batch.
//
// The returned Report holds one Outcome per attempted unit. The error return
// is reserved for precondition violations; unit errors never surface there.
func (e *Executor) Run(ctx context.Context, total int, op UnitOp) (*Report, error) {
	if err := e.validate(total); err != nil {
		return nil, err
	}

	report := newReport(total)
	spans := Partition(total, e.batchSize)

	for i, span := range spans {
		if ctx.Err() != nil {
			report.Stats.Interrupted = true
			break
		}

		outcomes := make([]Outcome, 0, span.Len())
		for _, index := range span.Indices() {
			outcomes = append(outcomes, e.runUnit(ctx, op, index))
		}

		report.absorb(outcomes)
		e.logBatch(i+1, len(spans), report)

		if i < len(spans)-1 && !e.pause(ctx) {
			report.Stats.Interrupted = true
			break
		}
	}

	report.finish()
	return report, nil
}

// RunBatched executes op once per batch. All units in a batch share the
// batch's fate: one payload on success, the same recorded error on failure.
func (e *Executor) RunBatched(ctx context.Context, total int, op BatchOp) (*Report, error) {
	if err := e.validate(total); err != nil {
		return nil, err
	}

	report := newReport(total)
	spans := Partition(total, e.batchSize)

	for i, span := range spans {
		if ctx.Err() != nil {
			report.Stats.Interrupted = true
			break
		}

		indices := span.Indices()
		payload, err := e.runWholeBatch(ctx, op, indices)

		outcomes := make([]Outcome, 0, len(indices))
		for _, index := range indices {
			if err != nil {
				outcomes = append(outcomes, failureOutcome(index, nil, err))
			} else {
				outcomes = append(outcomes, successOutcome(index, payload))
			}
		}

		report.absorb(outcomes)
		e.logBatch(i+1, len(spans), report)

		if i < len(spans)-1 && !e.pause(ctx) {
			report.Stats.Interrupted = true
			break
		}
	}

	report.finish()
	return report, nil
}

// RunConcurrent executes op once per unit, dispatching the units of each
// batch onto a worker pool sized to the batch. The batch is a barrier: all
// in-flight units resolve before stats move and the inter-batch pause runs.
func (e *Executor) RunConcurrent(ctx context.Context, total int, op UnitOp) (*Report, error) {
	if err := e.validate(total); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(e.batchSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create worker pool")
	}
	defer pool.Release()

	report := newReport(total)
	spans := Partition(total, e.batchSize)

	for i, span := range spans {
		if ctx.Err() != nil {
			report.Stats.Interrupted = true
			break
		}

		// Each unit writes only its own slot, so the WaitGroup barrier is
		// the only synchronization the batch needs.
		outcomes := make([]Outcome, span.Len())
		var wg sync.WaitGroup

		for _, index := range span.Indices() {
			slot := index - 1 - span.Start
			index := index

			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				outcomes[slot] = e.runUnit(ctx, op, index)
			})
			if submitErr != nil {
				outcomes[slot] = failureOutcome(index, nil, submitErr)
				wg.Done()
			}
		}

		wg.Wait()
		report.absorb(outcomes)
		e.logBatch(i+1, len(spans), report)

		if i < len(spans)-1 && !e.pause(ctx) {
			report.Stats.Interrupted = true
			break
		}
	}

	report.finish()
	return report, nil
}

func (e *Executor) validate(total int) error {
	if total <= 0 {
		return &ConfigError{Field: "count", Reason: "must be positive"}
	}
	if e.batchSize <= 0 {
		return &ConfigError{Field: "batch_size", Reason: "must be positive"}
	}

	return nil
}

// runUnit converts both returned errors and panics into failure outcomes so
// one bad unit cannot take down the run.
func (e *Executor) runUnit(ctx context.Context, op UnitOp, index int) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = failureOutcome(index, nil, errors.Errorf("panic: %v", r))
		}
	}()

	payload, err := op(ctx, index)
	if err != nil {
		return failureOutcome(index, payload, err)
	}

	return successOutcome(index, payload)
}

func (e *Executor) runWholeBatch(ctx context.Context, op BatchOp, indices []int) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	return op(ctx, indices)
}

// pause sleeps the fixed inter-batch delay. It reports false when the context
// fires first.
func (e *Executor) pause(ctx context.Context) bool {
	if e.delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) logBatch(batchNum, batchCount int, report *Report) {
	e.logger.Info("[Run] batch complete", map[string]string{
		"batch":      strconv.Itoa(batchNum),
		"batches":    strconv.Itoa(batchCount),
		"successful": strconv.Itoa(report.Stats.Successful),
		"failed":     strconv.Itoa(report.Stats.Failed),
	})
}
