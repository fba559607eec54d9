package dispense

import (
	"context"
	"time"
)

// Status values for a dispense attempt record.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// DefaultFuelType is assumed when the pump does not report one.
const DefaultFuelType = "PETROL"

// Transaction is one dispense attempt against an account. Records are
// append-only: written once, never updated, and kept after the account is
// deleted so the ledger can always reconstruct what was attempted.
type Transaction struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	RFID        string    `gorm:"column:rfid_uid;index;size:64;not null" json:"rfid_uid"`
	VolumeLitre float64   `json:"volume_litre"`
	Amount      int64     `gorm:"not null" json:"amount"`
	FuelType    string    `gorm:"size:32;index" json:"fuel_type"`
	Status      string    `gorm:"size:16;index" json:"status"`
	Note        string    `gorm:"size:255" json:"note,omitempty"`
	Time        time.Time `gorm:"index" json:"time"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Transaction) TableName() string { return "dispense_transactions" }

// Filter narrows history queries; empty fields match everything.
type Filter struct {
	RFID     string
	Status   string
	FuelType string
}

// Repository is the append-only ledger contract.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	// List returns matching records newest-first.
	List(ctx context.Context, f Filter, offset, limit int) ([]*Transaction, error)
	Count(ctx context.Context, f Filter) (int64, error)
	// ListAll returns the whole filtered set for full-scan aggregation.
	ListAll(ctx context.Context, f Filter) ([]*Transaction, error)
}
