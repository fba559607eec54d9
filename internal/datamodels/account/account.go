package account

import (
	"context"
	"errors"
	"time"

	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

// ErrNotFound is returned by repositories when no account matches the tag.
var ErrNotFound = errors.New("account not found")

// Account is one prepaid fleet account, keyed by the RFID tag on the card.
// Balance is in minor currency units and only ever moves through the atomic
// repository operations below.
type Account struct {
	ID        int64  `gorm:"primaryKey" json:"-"`
	RFID      string `gorm:"column:rfid_uid;uniqueIndex;size:64;not null" json:"rfid_uid"`
	Name      string `gorm:"size:128" json:"name"`
	Phone     string `gorm:"size:32" json:"phone"`
	CarNumber string `gorm:"size:32" json:"car_number"`
	Balance   int64  `gorm:"not null" json:"balance"`

	LastDispense       *time.Time `json:"last_dispense"`
	LastDispenseVolume float64    `json:"last_dispense_volume"`
	LastDispenseAmount int64      `json:"last_dispense_amount"`
	LastDispenseStatus string     `gorm:"size:16" json:"last_dispense_status"`

	LastTopup       *time.Time `json:"last_topup"`
	LastTopupAmount int64      `json:"last_topup_amount"`

	TotalDispenses int64 `gorm:"not null" json:"total_dispenses"`
	TotalTopups    int64 `gorm:"not null" json:"total_topups"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile carries the mutable metadata fields. A nil field means "leave
// unchanged"; profile updates never touch balance or the counters.
type Profile struct {
	Name      *string
	Phone     *string
	CarNumber *string
}

// TopUpParams describes one atomic credit.
type TopUpParams struct {
	RFID      string
	Amount    int64
	CarNumber string // merged when non-empty
	At        time.Time
}

// DebitParams describes one atomic conditional debit.
type DebitParams struct {
	RFID        string
	Amount      int64
	VolumeLitre float64
	FuelType    string
	CarNumber   string // merged when non-empty
	At          time.Time
}

// Repository is the ledger-store contract for accounts.
type Repository interface {
	GetByRFID(ctx context.Context, rfid string) (*Account, error)
	// Upsert creates the account with zero balance and counters, or merges the
	// provided profile fields into an existing one. created reports which.
	Upsert(ctx context.Context, rfid string, p Profile) (acc *Account, created bool, err error)
	// CreditTopUp atomically creates-or-increments: balance, total_topups and
	// the last_topup fields move in a single upsert, so two concurrent top-ups
	// on one tag both land.
	CreditTopUp(ctx context.Context, p TopUpParams) (*Account, error)
	// DebitDispense applies the conditional debit. The decrement, the summary
	// fields and the SUCCESS ledger record commit together iff balance >= amount
	// holds at the moment of the write. ok=false reports a lost condition with
	// nothing written.
	DebitDispense(ctx context.Context, p DebitParams) (acc *Account, rec *dispense.Transaction, ok bool, err error)
	// SetBalance is the administrative override.
	SetBalance(ctx context.Context, rfid string, balance int64) (*Account, error)
	// Delete removes the account and returns the deleted snapshot. Ledger
	// records referencing the tag stay.
	Delete(ctx context.Context, rfid string) (*Account, error)
	// Search matches the query case-insensitively against tag, name, phone and
	// car number; newest accounts first.
	Search(ctx context.Context, query string, offset, limit int) ([]*Account, int64, error)
}
