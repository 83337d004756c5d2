package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment mirrors one row of the payments table. The column names keep the
// quoted mixed-case identifiers the payment stack ships with.
type Payment struct {
	ID              string          `gorm:"column:Id;type:text;primaryKey"`
	Blob            []byte          `gorm:"column:Blob;type:bytea"`
	InvoiceDataID   string          `gorm:"column:InvoiceDataId;type:text"`
	Accounted       bool            `gorm:"column:Accounted;type:boolean"`
	Blob2           string          `gorm:"column:Blob2;type:jsonb"`
	PaymentMethodID string          `gorm:"column:PaymentMethodId;type:text"`
	Amount          decimal.Decimal `gorm:"column:Amount;type:numeric"`
	Create          time.Time       `gorm:"column:Create;type:timestamp with time zone"`
	Currency        string          `gorm:"column:Currency;type:text"`
	Status          string          `gorm:"column:Status;type:text"`
}

func (Payment) TableName() string {
	return "payments"
}
