package invoice

import (
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, invoice *model.Invoice) (*model.Invoice, error)
	GetByID(tx *gorm.DB, id string) (*model.Invoice, error)
	Count(tx *gorm.DB) (int64, error)
}
