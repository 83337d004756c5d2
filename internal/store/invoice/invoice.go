package invoice

import (
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, invoice *model.Invoice) (*model.Invoice, error) {
	return invoice, tx.Create(invoice).Error
}

func (s *Store) GetByID(tx *gorm.DB, id string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := tx.Where(`"Id" = ?`, id).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Store) Count(tx *gorm.DB) (int64, error) {
	var count int64
	err := tx.Model(&model.Invoice{}).Count(&count).Error
	return count, err
}
