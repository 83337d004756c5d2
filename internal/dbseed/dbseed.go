package dbseed

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/batch"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/store"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// Seeder writes synthetic payment and invoice rows in batches, tracking every
// row's fate individually.
type Seeder struct {
	logger *logger.Logger
	dbRepo store.DBRepo
	store  *store.Store
	opts   runconfig.PaymentsOptions
	rng    *rand.Rand
	now    func() time.Time
}

// SeedResult carries one report per seeded table.
type SeedResult struct {
	Payments *batch.Report
	Invoices *batch.Report
}

func New(dbRepo store.DBRepo, l *logger.Logger, opts runconfig.PaymentsOptions) *Seeder {
	return &Seeder{
		logger: l,
		dbRepo: dbRepo,
		store:  store.New(dbRepo.DB()),
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// TestConnection proves the database credentials work before anything mutates.
func (s *Seeder) TestConnection() error {
	if err := s.dbRepo.Ping(); err != nil {
		return &batch.ConnectivityError{Target: "postgres", Err: err}
	}

	s.logger.Info("[TestConnection] database reachable", map[string]string{
		"host": s.opts.Host,
	})
	return nil
}

// EnsureSchema creates the target tables when they are missing.
func (s *Seeder) EnsureSchema() error {
	return store.EnsureSchema(s.dbRepo.DB(), s.logger)
}

// Run seeds the configured table(s). With "both", each table receives the
// full configured count. Rows are inserted one short transaction at a time
// so a rejected row fails alone while the rest of its batch lands.
func (s *Seeder) Run(ctx context.Context) (*SeedResult, error) {
	executor := batch.New(s.logger, s.opts.BatchSize, 0)
	result := &SeedResult{}

	if s.opts.Table == "payments" || s.opts.Table == "both" {
		report, err := executor.Run(ctx, s.opts.Count, s.insertPayment)
		if err != nil {
			return nil, err
		}
		result.Payments = report
	}

	if ctx.Err() != nil {
		return result, nil
	}

	if s.opts.Table == "invoices" || s.opts.Table == "both" {
		report, err := executor.Run(ctx, s.opts.Count, s.insertInvoice)
		if err != nil {
			return nil, err
		}
		result.Invoices = report
	}

	return result, nil
}

// Export writes the artifact files for every table the run touched.
func (s *Seeder) Export(result *SeedResult) ([]*batch.ExportedFiles, error) {
	var files []*batch.ExportedFiles

	if result.Payments != nil {
		exported, err := batch.Export(result.Payments, s.exportConfig("payments"))
		if err != nil {
			return nil, err
		}
		files = append(files, exported)
	}

	if result.Invoices != nil {
		exported, err := batch.Export(result.Invoices, s.exportConfig("invoices"))
		if err != nil {
			return nil, err
		}
		files = append(files, exported)
	}

	return files, nil
}

func (s *Seeder) exportConfig(kind string) batch.ExportConfig {
	return batch.ExportConfig{
		Dir:         s.opts.OutputDir,
		Kind:        kind,
		SummaryName: "population_summary",
		Metadata: map[string]any{
			"table_name": kind,
		},
		Configuration: map[string]any{
			"table_name":    kind,
			"database_host": s.opts.Host,
		},
	}
}

func (s *Seeder) insertPayment(_ context.Context, index int) (any, error) {
	row, record := synthPayment(s.rng, index, s.now())

	if err := s.createRow(func(tx *gorm.DB) error {
		_, err := s.store.Payment.Create(tx, row)
		return err
	}); err != nil {
		s.logger.Error("[insertPayment] insert failed", map[string]string{
			"payment_id": row.ID,
			"error":      err.Error(),
		})
		return map[string]string{"payment_id": row.ID}, errors.Wrap(err, "failed to insert payment")
	}

	return record, nil
}

func (s *Seeder) insertInvoice(_ context.Context, index int) (any, error) {
	row, record := synthInvoice(s.rng, index, s.now())

	if err := s.createRow(func(tx *gorm.DB) error {
		_, err := s.store.Invoice.Create(tx, row)
		return err
	}); err != nil {
		s.logger.Error("[insertInvoice] insert failed", map[string]string{
			"invoice_id": row.ID,
			"error":      err.Error(),
		})
		return map[string]string{"invoice_id": row.ID}, errors.Wrap(err, "failed to insert invoice")
	}

	return record, nil
}

func (s *Seeder) createRow(fn func(tx *gorm.DB) error) error {
	return store.DoInTx(s.dbRepo.DB(), fn)
}

// Counts reports the current table sizes, used after a run to show what
// actually landed.
func (s *Seeder) Counts() (payments int64, invoices int64, err error) {
	db := s.dbRepo.DB()

	if s.opts.Table == "payments" || s.opts.Table == "both" {
		payments, err = s.store.Payment.Count(db)
		if err != nil {
			return 0, 0, err
		}
	}
	if s.opts.Table == "invoices" || s.opts.Table == "both" {
		invoices, err = s.store.Invoice.Count(db)
		if err != nil {
			return 0, 0, err
		}
	}

	return payments, invoices, nil
}
