package store

import (
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/store/invoice"
	"github.com/probstack/btcpay-harness/internal/store/payment"
)

type Store struct {
	Payment payment.IStore
	Invoice invoice.IStore
}

func New(db *gorm.DB) *Store {
	return &Store{
		Payment: payment.New(),
		Invoice: invoice.New(),
	}
}

// DoInTx runs fn inside one transaction, rolling back on error.
func DoInTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	err := fn(tx)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
