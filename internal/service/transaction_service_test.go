package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/fueldispenser/internal/datamodels/account"
	"github.com/example/fueldispenser/internal/datamodels/dispense"
	"github.com/example/fueldispenser/internal/repository/memory"
	"github.com/example/fueldispenser/internal/service"
)

func newEngine() (*service.TransactionService, dispense.Repository) {
	ledger := memory.NewTransactionRepository()
	accounts := memory.NewAccountRepository(ledger)
	return service.NewTransactionService(accounts, ledger), ledger
}

func TestTopUpCreatesAccount(t *testing.T) {
	engine, _ := newEngine()
	ctx := context.Background()

	res, err := engine.TopUp(ctx, "04A1B2C3", 50000, "B 1234 ABC")
	if err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	if res.BalanceBefore != 0 || res.BalanceAfter != 50000 || res.AmountAdded != 50000 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Account.TotalTopups != 1 {
		t.Fatalf("TotalTopups = %d, want 1", res.Account.TotalTopups)
	}
	if res.Account.CarNumber != "B 1234 ABC" {
		t.Fatalf("CarNumber = %q", res.Account.CarNumber)
	}
	if res.Account.LastTopup == nil || res.Account.LastTopupAmount != 50000 {
		t.Fatalf("last topup not recorded: %+v", res.Account)
	}
}

func TestTopUpAccumulates(t *testing.T) {
	engine, _ := newEngine()
	ctx := context.Background()

	if _, err := engine.TopUp(ctx, "TAG1", 100, ""); err != nil {
		t.Fatalf("first TopUp: %v", err)
	}
	res, err := engine.TopUp(ctx, "TAG1", 250, "")
	if err != nil {
		t.Fatalf("second TopUp: %v", err)
	}
	if res.BalanceBefore != 100 || res.BalanceAfter != 350 {
		t.Fatalf("got before=%d after=%d, want 100/350", res.BalanceBefore, res.BalanceAfter)
	}
}

func TestTopUpValidation(t *testing.T) {
	engine, ledger := newEngine()
	ctx := context.Background()

	cases := []struct {
		name   string
		rfid   string
		amount int64
		want   error
	}{
		{"empty rfid", "", 100, service.ErrInvalidIdentity},
		{"blank rfid", "   ", 100, service.ErrInvalidIdentity},
		{"zero amount", "TAG1", 0, service.ErrInvalidAmount},
		{"negative amount", "TAG1", -5, service.ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.TopUp(ctx, tc.rfid, tc.amount, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	n, err := ledger.Count(ctx, dispense.Filter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("validation failures wrote %d ledger records", n)
	}
}

func TestConcurrentTopUpsAllLand(t *testing.T) {
	engine, _ := newEngine()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := engine.TopUp(ctx, "TAG1", 10, ""); err != nil {
				t.Errorf("TopUp: %v", err)
			}
		}()
	}
	wg.Wait()

	res, err := engine.TopUp(ctx, "TAG1", 1, "")
	if err != nil {
		t.Fatalf("final TopUp: %v", err)
	}
	if res.BalanceAfter != workers*10+1 {
		t.Fatalf("balance = %d, want %d", res.BalanceAfter, workers*10+1)
	}
}

func TestDispenseSuccess(t *testing.T) {
	engine, ledger := newEngine()
	ctx := context.Background()

	if _, err := engine.TopUp(ctx, "TAG1", 50000, ""); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	res, err := engine.Dispense(ctx, service.DispenseRequest{
		RFID:        "TAG1",
		VolumeLitre: 2.5,
		Amount:      25000,
	})
	if err != nil {
		t.Fatalf("Dispense: %v", err)
	}
	if res.BalanceBefore != 50000 || res.BalanceAfter != 25000 {
		t.Fatalf("got before=%d after=%d", res.BalanceBefore, res.BalanceAfter)
	}
	if res.Transaction.Status != dispense.StatusSuccess {
		t.Fatalf("status = %q", res.Transaction.Status)
	}
	if res.Transaction.FuelType != dispense.DefaultFuelType {
		t.Fatalf("fuel type = %q, want default", res.Transaction.FuelType)
	}
	if res.Account.TotalDispenses != 1 {
		t.Fatalf("TotalDispenses = %d", res.Account.TotalDispenses)
	}

	recs, err := ledger.ListAll(ctx, dispense.Filter{RFID: "TAG1"})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != dispense.StatusSuccess {
		t.Fatalf("ledger = %+v, want one SUCCESS record", recs)
	}
}

func TestDispenseUnknownTagRecordsFailure(t *testing.T) {
	engine, ledger := newEngine()
	ctx := context.Background()

	_, err := engine.Dispense(ctx, service.DispenseRequest{
		RFID:        "GHOST",
		VolumeLitre: 1,
		Amount:      100,
	})
	if !errors.Is(err, service.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}

	recs, err := ledger.ListAll(ctx, dispense.Filter{RFID: "GHOST"})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Status != dispense.StatusFailed || recs[0].Note != "unknown rfid_uid" {
		t.Fatalf("record = %+v", recs[0])
	}
}

func TestDispenseInsufficientBalance(t *testing.T) {
	engine, ledger := newEngine()
	ctx := context.Background()

	if _, err := engine.TopUp(ctx, "TAG1", 100, ""); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	_, err := engine.Dispense(ctx, service.DispenseRequest{
		RFID:        "TAG1",
		VolumeLitre: 3,
		Amount:      300,
	})
	var insufficient *service.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientBalanceError", err)
	}
	if insufficient.Balance != 100 || insufficient.Required != 300 || insufficient.Shortage() != 200 {
		t.Fatalf("error = %+v", insufficient)
	}
	if insufficient.Concurrent {
		t.Fatal("pre-check rejection must not be flagged concurrent")
	}

	recs, _ := ledger.ListAll(ctx, dispense.Filter{RFID: "TAG1", Status: dispense.StatusFailed})
	if len(recs) != 1 || recs[0].Note != "insufficient balance" {
		t.Fatalf("failed records = %+v", recs)
	}
}

func TestDispenseValidationWritesNothing(t *testing.T) {
	engine, ledger := newEngine()
	ctx := context.Background()

	cases := []struct {
		name string
		req  service.DispenseRequest
		want error
	}{
		{"empty rfid", service.DispenseRequest{VolumeLitre: 1, Amount: 10}, service.ErrInvalidIdentity},
		{"zero volume", service.DispenseRequest{RFID: "T", Amount: 10}, service.ErrInvalidVolume},
		{"zero amount", service.DispenseRequest{RFID: "T", VolumeLitre: 1}, service.ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Dispense(ctx, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	n, _ := ledger.Count(ctx, dispense.Filter{})
	if n != 0 {
		t.Fatalf("validation failures wrote %d ledger records", n)
	}
}

// contendedAccounts simulates an account whose balance is consumed by another
// debit between the advisory pre-check and the conditional write: reads always
// report an affordable balance, the debit always loses its condition.
type contendedAccounts struct {
	balance int64
}

func (r *contendedAccounts) GetByRFID(ctx context.Context, rfid string) (*account.Account, error) {
	return &account.Account{RFID: rfid, Balance: r.balance}, nil
}

func (r *contendedAccounts) DebitDispense(ctx context.Context, p account.DebitParams) (*account.Account, *dispense.Transaction, bool, error) {
	return nil, nil, false, nil
}

func (r *contendedAccounts) Upsert(ctx context.Context, rfid string, p account.Profile) (*account.Account, bool, error) {
	return nil, false, errors.New("not supported")
}

func (r *contendedAccounts) CreditTopUp(ctx context.Context, p account.TopUpParams) (*account.Account, error) {
	return nil, errors.New("not supported")
}

func (r *contendedAccounts) SetBalance(ctx context.Context, rfid string, balance int64) (*account.Account, error) {
	return nil, errors.New("not supported")
}

func (r *contendedAccounts) Delete(ctx context.Context, rfid string) (*account.Account, error) {
	return nil, errors.New("not supported")
}

func (r *contendedAccounts) Search(ctx context.Context, query string, offset, limit int) ([]*account.Account, int64, error) {
	return nil, 0, errors.New("not supported")
}

// The pre-check passes but the conditional write loses: the rejection must
// carry the concurrent flag and leave a FAILED record noting the lost race.
func TestDispenseConditionLostAfterPreCheck(t *testing.T) {
	ledger := memory.NewTransactionRepository()
	engine := service.NewTransactionService(&contendedAccounts{balance: 1000}, ledger)
	ctx := context.Background()

	_, err := engine.Dispense(ctx, service.DispenseRequest{
		RFID:        "TAG1",
		VolumeLitre: 2,
		Amount:      200,
	})
	var insufficient *service.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientBalanceError", err)
	}
	if !insufficient.Concurrent {
		t.Fatal("lost condition must be flagged concurrent")
	}
	if insufficient.Balance != 1000 || insufficient.Required != 200 {
		t.Fatalf("error = %+v", insufficient)
	}

	recs, err := ledger.ListAll(ctx, dispense.Filter{RFID: "TAG1"})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Status != dispense.StatusFailed || recs[0].Note != "concurrent transaction" {
		t.Fatalf("record = %+v", recs[0])
	}
}

// Two dispenses race for a balance that covers only one of them. Exactly one
// may win; the loser leaves a FAILED record and no money moves for it.
func TestConcurrentDispenseSingleWinner(t *testing.T) {
	engine, ledger := newEngine()
	ctx := context.Background()

	if _, err := engine.TopUp(ctx, "TAG1", 300, ""); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Dispense(ctx, service.DispenseRequest{
				RFID:        "TAG1",
				VolumeLitre: 2,
				Amount:      200,
			})
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var insufficient *service.InsufficientBalanceError
		if !errors.As(err, &insufficient) {
			t.Fatalf("unexpected error: %v", err)
		}
		losses++
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d, want exactly one of each", wins, losses)
	}

	succ, _ := ledger.Count(ctx, dispense.Filter{Status: dispense.StatusSuccess})
	fail, _ := ledger.Count(ctx, dispense.Filter{Status: dispense.StatusFailed})
	if succ != 1 || fail != 1 {
		t.Fatalf("ledger success=%d failed=%d, want 1/1", succ, fail)
	}

	res, err := engine.TopUp(ctx, "TAG1", 1, "")
	if err != nil {
		t.Fatalf("final TopUp: %v", err)
	}
	if res.BalanceBefore != 100 {
		t.Fatalf("balance after race = %d, want 100", res.BalanceBefore)
	}
}
