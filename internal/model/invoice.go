package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice mirrors one row of the invoices table.
type Invoice struct {
	ID              string          `gorm:"column:Id;type:text;primaryKey"`
	Blob            []byte          `gorm:"column:Blob;type:bytea"`
	Created         time.Time       `gorm:"column:Created;type:timestamp with time zone"`
	CustomerEmail   string          `gorm:"column:CustomerEmail;type:text"`
	ExceptionStatus string          `gorm:"column:ExceptionStatus;type:text"`
	ItemCode        string          `gorm:"column:ItemCode;type:text"`
	OrderID         string          `gorm:"column:OrderId;type:text"`
	Status          string          `gorm:"column:Status;type:text"`
	Blob2           string          `gorm:"column:Blob2;type:jsonb"`
	Amount          decimal.Decimal `gorm:"column:Amount;type:numeric"`
	Currency        string          `gorm:"column:Currency;type:text"`
}

func (Invoice) TableName() string {
	return "invoices"
}
