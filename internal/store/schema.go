package store

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// The stack under test owns these tables in production, so schema management
// here is deliberately raw DDL matching its quoted identifiers instead of
// gorm auto-migration.
const createPaymentsTable = `
CREATE TABLE payments (
    "Id" text PRIMARY KEY,
    "Blob" bytea,
    "InvoiceDataId" text,
    "Accounted" boolean,
    "Blob2" jsonb,
    "PaymentMethodId" text,
    "Amount" numeric,
    "Create" timestamp with time zone,
    "Currency" text,
    "Status" text
)`

const createInvoicesTable = `
CREATE TABLE invoices (
    "Id" text PRIMARY KEY,
    "Blob" bytea,
    "Created" timestamp with time zone,
    "CustomerEmail" text,
    "ExceptionStatus" text,
    "ItemCode" text,
    "OrderId" text,
    "Status" text,
    "Blob2" jsonb,
    "Amount" numeric,
    "Currency" text
)`

// EnsureSchema creates the payments and invoices tables when they are
// missing. Running it against an already prepared database is a no-op.
func EnsureSchema(db *gorm.DB, l *logger.Logger) error {
	tables := []struct {
		name string
		ddl  string
	}{
		{name: "payments", ddl: createPaymentsTable},
		{name: "invoices", ddl: createInvoicesTable},
	}

	for _, table := range tables {
		var exists bool
		err := db.Raw(
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = ?)",
			table.name,
		).Scan(&exists).Error
		if err != nil {
			return errors.Wrapf(err, "failed to check for table %s", table.name)
		}

		if exists {
			l.Info("[EnsureSchema] table already exists", map[string]string{
				"table": table.name,
			})
			continue
		}

		if err := db.Exec(table.ddl).Error; err != nil {
			return errors.Wrapf(err, "failed to create table %s", table.name)
		}
		l.Info("[EnsureSchema] table created", map[string]string{
			"table": table.name,
		})
	}

	return nil
}
