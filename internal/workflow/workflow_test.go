package workflow

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/types/environments"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

func newRunner(steps []Step) (*Runner, *bytes.Buffer) {
	out := &bytes.Buffer{}
	r := New(logger.New(environments.Test), out)
	for _, step := range steps {
		r.Add(step)
	}
	return r, out
}

func recordStep(order *[]string, name string) StepFunc {
	return func(context.Context) error {
		*order = append(*order, name)
		return nil
	}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	var order []string
	r, out := newRunner(StandardSteps(
		recordStep(&order, "addresses"),
		recordStep(&order, "invoices"),
		recordStep(&order, "payments"),
		SkipFlags{},
	))

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"addresses", "invoices", "payments"}, order)
	assert.Equal(t, 3, summary.CompletedSteps)
	assert.Equal(t, 3, summary.TotalSteps)
	assert.Empty(t, summary.FailedStep)
	assert.False(t, summary.Interrupted)

	text := out.String()
	assert.Contains(t, text, "STEP 1: Generating Bitcoin addresses")
	assert.Contains(t, text, "STEP 2: Generating BTCPay invoices")
	assert.Contains(t, text, "STEP 3: Populating payment tables")
	assert.Contains(t, text, "WORKFLOW SUMMARY")
	assert.Contains(t, text, "Completed steps: 3/3")
	assert.Contains(t, text, "Workflow completed successfully!")
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	var order []string
	r, out := newRunner(StandardSteps(
		recordStep(&order, "addresses"),
		func(context.Context) error { return assert.AnError },
		recordStep(&order, "payments"),
		SkipFlags{},
	))

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step invoices failed")

	assert.Equal(t, 1, summary.CompletedSteps)
	assert.Equal(t, 3, summary.TotalSteps)
	assert.Equal(t, "invoices", summary.FailedStep)
	assert.Equal(t, []string{"addresses"}, order)

	text := out.String()
	assert.Contains(t, text, "Completed steps: 1/3")
	assert.Contains(t, text, "Workflow completed with errors")
	assert.NotContains(t, text, "STEP 3:")
}

func TestRun_SkipKeepsStepNumbers(t *testing.T) {
	var order []string
	r, out := newRunner(StandardSteps(
		recordStep(&order, "addresses"),
		recordStep(&order, "invoices"),
		recordStep(&order, "payments"),
		SkipFlags{Addresses: true},
	))

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"invoices", "payments"}, order)
	assert.Equal(t, 2, summary.CompletedSteps)
	assert.Equal(t, 2, summary.TotalSteps)
	assert.Equal(t, []string{"addresses"}, summary.Skipped)

	text := out.String()
	assert.NotContains(t, text, "STEP 1:")
	assert.Contains(t, text, "STEP 2: Generating BTCPay invoices")
	assert.Contains(t, text, "STEP 3: Populating payment tables")
	assert.Contains(t, text, "Skipped: addresses")
	assert.Contains(t, text, "Completed steps: 2/2")
}

func TestRun_CanceledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var order []string
	r, out := newRunner(StandardSteps(
		func(context.Context) error {
			order = append(order, "addresses")
			cancel()
			return nil
		},
		recordStep(&order, "invoices"),
		recordStep(&order, "payments"),
		SkipFlags{},
	))

	summary, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.CompletedSteps)
	assert.Equal(t, []string{"addresses"}, order)
	assert.Contains(t, out.String(), "Workflow interrupted")
}

func TestPlan(t *testing.T) {
	r, out := newRunner(StandardSteps(nil, nil, nil, SkipFlags{Invoices: true}))
	r.Plan()

	text := out.String()
	assert.Contains(t, text, "DRY RUN - would execute the following steps:")
	assert.Contains(t, text, "1. Generating Bitcoin addresses")
	assert.NotContains(t, text, "2. Generating BTCPay invoices")
	assert.Contains(t, text, "3. Populating payment tables")
	assert.NotContains(t, text, "STEP 1:")
}

func TestPlan_EverythingSkipped(t *testing.T) {
	r, out := newRunner(StandardSteps(nil, nil, nil, SkipFlags{Addresses: true, Invoices: true, Payments: true}))
	r.Plan()

	assert.Contains(t, out.String(), "nothing to do")
}

func loadConfig(t *testing.T, doc string) *runconfig.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	file, err := runconfig.Load(path)
	require.NoError(t, err)
	return file
}

const completeConfig = `{
	"_address_generation": {"count": 5, "amount": 0.001},
	"_invoice_generation": {"api_key": "token123", "store_id": "store-1", "base_url": "http://localhost:14142"},
	"_payments_population": {"host": "localhost", "database": "btcpayserver", "user": "postgres", "password": "postgres"}
}`

func TestCheckPrerequisites(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "complete config passes",
			doc:  completeConfig,
		},
		{
			name:    "legacy flat file is missing every section",
			doc:     `{"api_key": "token123", "store_id": "store-1"}`,
			wantErr: "missing required config section: _address_generation",
		},
		{
			name: "missing payments section",
			doc: `{
				"_address_generation": {"count": 5},
				"_invoice_generation": {"api_key": "token123", "store_id": "store-1"}
			}`,
			wantErr: "missing required config section: _payments_population",
		},
		{
			name: "placeholder api key",
			doc: `{
				"_address_generation": {"count": 5},
				"_invoice_generation": {"api_key": "your_btcpay_api_key_here", "store_id": "store-1"},
				"_payments_population": {"host": "localhost", "database": "db", "user": "u", "password": "p"}
			}`,
			wantErr: "BTCPay API key",
		},
		{
			name: "placeholder store id",
			doc: `{
				"_address_generation": {"count": 5},
				"_invoice_generation": {"api_key": "token123", "store_id": "your_store_id_here"},
				"_payments_population": {"host": "localhost", "database": "db", "user": "u", "password": "p"}
			}`,
			wantErr: "BTCPay store ID",
		},
		{
			name: "placeholder base url",
			doc: `{
				"_address_generation": {"count": 5},
				"_invoice_generation": {"api_key": "token123", "store_id": "store-1", "base_url": "https://your-btcpay-server.com"},
				"_payments_population": {"host": "localhost", "database": "db", "user": "u", "password": "p"}
			}`,
			wantErr: "BTCPay server URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPrerequisites(loadConfig(t, tt.doc))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
