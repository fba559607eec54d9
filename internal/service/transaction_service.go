package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/fueldispenser/internal/datamodels/account"
	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

// TransactionService orchestrates top-ups and dispenses against the ledger
// store. It is the only component that moves balances, and it never does so
// through read-modify-write: every mutation is one atomic repository call.
type TransactionService struct {
	accounts account.Repository
	ledger   dispense.Repository
	now      func() time.Time
}

// NewTransactionService creates the engine.
func NewTransactionService(accounts account.Repository, ledger dispense.Repository) *TransactionService {
	return &TransactionService{
		accounts: accounts,
		ledger:   ledger,
		now:      time.Now,
	}
}

// TopUpResult reports the balances around a credit.
type TopUpResult struct {
	BalanceBefore int64
	BalanceAfter  int64
	AmountAdded   int64
	Account       *account.Account
}

// TopUp credits the account, creating it on first use. The credit, the
// total_topups counter and the last_topup fields land in one atomic upsert.
// Top-ups are not written to the dispense ledger; they are reconstructable
// from the account's own summary fields.
func (s *TransactionService) TopUp(ctx context.Context, rfid string, amount int64, carNumber string) (*TopUpResult, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, ErrInvalidIdentity
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	GetMonitor().RecordTopUpRequest()

	// Advisory read for the balance-before shown to the caller.
	var before int64
	acc, err := s.accounts.GetByRFID(ctx, rfid)
	switch {
	case err == nil:
		before = acc.Balance
	case errors.Is(err, account.ErrNotFound):
		// first top-up creates the account
	default:
		GetMonitor().RecordDBError()
		return nil, err
	}

	updated, err := s.accounts.CreditTopUp(ctx, account.TopUpParams{
		RFID:      rfid,
		Amount:    amount,
		CarNumber: carNumber,
		At:        s.now(),
	})
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return &TopUpResult{
		BalanceBefore: before,
		BalanceAfter:  updated.Balance,
		AmountAdded:   amount,
		Account:       updated,
	}, nil
}

// DispenseRequest is one completion report from the pump side. The volume and
// amount are caller-reported after physical dispensing; nothing here verifies
// the physical delivery matched them.
type DispenseRequest struct {
	RFID        string  `json:"rfid_uid"`
	VolumeLitre float64 `json:"volume_litre"`
	Amount      int64   `json:"amount"`
	FuelType    string  `json:"fuel_type,omitempty"`
	CarNumber   string  `json:"car_number,omitempty"`
}

// DispenseResult reports a committed debit.
type DispenseResult struct {
	BalanceBefore int64
	BalanceAfter  int64
	Transaction   *dispense.Transaction
	Account       *account.Account
}

// Dispense settles one dispense attempt. Every call that passes input
// validation writes exactly one ledger record, SUCCESS or FAILED, and the
// balance moves iff that record is SUCCESS.
func (s *TransactionService) Dispense(ctx context.Context, req DispenseRequest) (*DispenseResult, error) {
	rfid := strings.TrimSpace(req.RFID)
	if rfid == "" {
		return nil, ErrInvalidIdentity
	}
	if req.VolumeLitre <= 0 {
		return nil, ErrInvalidVolume
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	fuel := req.FuelType
	if fuel == "" {
		fuel = dispense.DefaultFuelType
	}
	GetMonitor().RecordDispenseRequest()

	acc, err := s.accounts.GetByRFID(ctx, rfid)
	if errors.Is(err, account.ErrNotFound) {
		// The attempt against an unknown tag still goes on the record.
		if err := s.recordFailed(ctx, rfid, req, fuel, "unknown rfid_uid"); err != nil {
			return nil, err
		}
		GetMonitor().RecordDispenseFailed()
		return nil, ErrAccountNotFound
	}
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}

	// Advisory pre-check only. The conditional write below is authoritative;
	// this just avoids a pointless write for the common rejection.
	if acc.Balance < req.Amount {
		if err := s.recordFailed(ctx, rfid, req, fuel, "insufficient balance"); err != nil {
			return nil, err
		}
		GetMonitor().RecordDispenseFailed()
		return nil, &InsufficientBalanceError{Balance: acc.Balance, Required: req.Amount}
	}

	updated, rec, ok, err := s.accounts.DebitDispense(ctx, account.DebitParams{
		RFID:        rfid,
		Amount:      req.Amount,
		VolumeLitre: req.VolumeLitre,
		FuelType:    fuel,
		CarNumber:   req.CarNumber,
		At:          s.now(),
	})
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	if !ok {
		// Lost the race between pre-check and write: another debit consumed
		// the balance first.
		if err := s.recordFailed(ctx, rfid, req, fuel, "concurrent transaction"); err != nil {
			return nil, err
		}
		GetMonitor().RecordDispenseFailed()
		balance := int64(0)
		if cur, cerr := s.accounts.GetByRFID(ctx, rfid); cerr == nil {
			balance = cur.Balance
		}
		return nil, &InsufficientBalanceError{Balance: balance, Required: req.Amount, Concurrent: true}
	}

	GetMonitor().RecordDispenseSuccess()
	return &DispenseResult{
		BalanceBefore: acc.Balance,
		BalanceAfter:  updated.Balance,
		Transaction:   rec,
		Account:       updated,
	}, nil
}

func (s *TransactionService) recordFailed(ctx context.Context, rfid string, req DispenseRequest, fuel, note string) error {
	err := s.ledger.Create(ctx, &dispense.Transaction{
		RFID:        rfid,
		VolumeLitre: req.VolumeLitre,
		Amount:      req.Amount,
		FuelType:    fuel,
		Status:      dispense.StatusFailed,
		Note:        note,
		Time:        s.now(),
	})
	if err != nil {
		GetMonitor().RecordDBError()
	}
	return err
}
