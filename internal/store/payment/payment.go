package payment

import (
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, payment *model.Payment) (*model.Payment, error) {
	return payment, tx.Create(payment).Error
}

func (s *Store) GetByID(tx *gorm.DB, id string) (*model.Payment, error) {
	var payment model.Payment
	err := tx.Where(`"Id" = ?`, id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Store) Count(tx *gorm.DB) (int64, error) {
	var count int64
	err := tx.Model(&model.Payment{}).Count(&count).Error
	return count, err
}
