package service

import (
	"errors"
	"fmt"
)

// Input validation failures. These are rejected before any storage access and
// leave no ledger record.
var (
	ErrInvalidIdentity = errors.New("valid rfid_uid is required")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrInvalidVolume   = errors.New("volume_litre must be a positive number")
)

// ErrAccountNotFound reports an unknown tag. A dispense against an unknown tag
// still writes a FAILED ledger record before this is returned.
var ErrAccountNotFound = errors.New("user not found")

// InsufficientBalanceError reports a rejected debit. Concurrent marks the
// variant where the advisory pre-check passed but the conditional write lost
// to another debit on the same tag.
type InsufficientBalanceError struct {
	Balance    int64
	Required   int64
	Concurrent bool
}

func (e *InsufficientBalanceError) Error() string {
	if e.Concurrent {
		return "insufficient balance (concurrent transaction)"
	}
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Balance, e.Required)
}

// Shortage is the amount missing from the balance.
func (e *InsufficientBalanceError) Shortage() int64 {
	return e.Required - e.Balance
}
