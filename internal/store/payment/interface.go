package payment

import (
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, payment *model.Payment) (*model.Payment, error)
	GetByID(tx *gorm.DB, id string) (*model.Payment, error)
	Count(tx *gorm.DB) (int64, error)
}
