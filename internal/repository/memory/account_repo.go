// Package memory holds mutex-guarded in-memory implementations of the ledger
// store interfaces. They preserve the same atomicity semantics as the MySQL
// repositories and back the unit tests and the demo tooling.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/fueldispenser/internal/datamodels/account"
	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

type accountRepo struct {
	mu     sync.Mutex
	nextID int64
	byRFID map[string]*account.Account
	order  []string // insertion order, newest last

	ledger *transactionRepo // SUCCESS records commit under the same lock
}

// NewAccountRepository creates an in-memory account store. ledger may be nil
// when dispenses are not exercised.
func NewAccountRepository(ledger dispense.Repository) account.Repository {
	r := &accountRepo{byRFID: make(map[string]*account.Account)}
	if tr, ok := ledger.(*transactionRepo); ok {
		r.ledger = tr
	}
	return r
}

func cloneAccount(acc *account.Account) *account.Account {
	out := *acc
	if acc.LastTopup != nil {
		t := *acc.LastTopup
		out.LastTopup = &t
	}
	if acc.LastDispense != nil {
		t := *acc.LastDispense
		out.LastDispense = &t
	}
	return &out
}

func (r *accountRepo) get(rfid string) (*account.Account, bool) {
	acc, ok := r.byRFID[rfid]
	return acc, ok
}

func (r *accountRepo) create(rfid string) *account.Account {
	r.nextID++
	acc := &account.Account{
		ID:        r.nextID,
		RFID:      rfid,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.byRFID[rfid] = acc
	r.order = append(r.order, rfid)
	return acc
}

func (r *accountRepo) GetByRFID(ctx context.Context, rfid string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.get(rfid)
	if !ok {
		return nil, account.ErrNotFound
	}
	return cloneAccount(acc), nil
}

func (r *accountRepo) Upsert(ctx context.Context, rfid string, p account.Profile) (*account.Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.get(rfid)
	created := !ok
	if !ok {
		acc = r.create(rfid)
	}
	if p.Name != nil {
		acc.Name = *p.Name
	}
	if p.Phone != nil {
		acc.Phone = *p.Phone
	}
	if p.CarNumber != nil {
		acc.CarNumber = *p.CarNumber
	}
	acc.UpdatedAt = time.Now()
	return cloneAccount(acc), created, nil
}

func (r *accountRepo) CreditTopUp(ctx context.Context, p account.TopUpParams) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.get(p.RFID)
	if !ok {
		acc = r.create(p.RFID)
	}
	acc.Balance += p.Amount
	acc.TotalTopups++
	at := p.At
	acc.LastTopup = &at
	acc.LastTopupAmount = p.Amount
	if p.CarNumber != "" {
		acc.CarNumber = p.CarNumber
	}
	acc.UpdatedAt = time.Now()
	return cloneAccount(acc), nil
}

func (r *accountRepo) DebitDispense(ctx context.Context, p account.DebitParams) (*account.Account, *dispense.Transaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.get(p.RFID)
	if !ok || acc.Balance < p.Amount {
		return nil, nil, false, nil
	}
	fuel := p.FuelType
	if fuel == "" {
		fuel = dispense.DefaultFuelType
	}
	acc.Balance -= p.Amount
	acc.TotalDispenses++
	at := p.At
	acc.LastDispense = &at
	acc.LastDispenseVolume = p.VolumeLitre
	acc.LastDispenseAmount = p.Amount
	acc.LastDispenseStatus = dispense.StatusSuccess
	if p.CarNumber != "" {
		acc.CarNumber = p.CarNumber
	}
	acc.UpdatedAt = time.Now()

	rec := &dispense.Transaction{
		RFID:        p.RFID,
		VolumeLitre: p.VolumeLitre,
		Amount:      p.Amount,
		FuelType:    fuel,
		Status:      dispense.StatusSuccess,
		Time:        p.At,
	}
	if r.ledger != nil {
		r.ledger.append(rec)
	}
	return cloneAccount(acc), rec, true, nil
}

func (r *accountRepo) SetBalance(ctx context.Context, rfid string, balance int64) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.get(rfid)
	if !ok {
		return nil, account.ErrNotFound
	}
	acc.Balance = balance
	acc.UpdatedAt = time.Now()
	return cloneAccount(acc), nil
}

func (r *accountRepo) Delete(ctx context.Context, rfid string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.get(rfid)
	if !ok {
		return nil, account.ErrNotFound
	}
	delete(r.byRFID, rfid)
	for i, id := range r.order {
		if id == rfid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return acc, nil
}

func (r *accountRepo) Search(ctx context.Context, query string, offset, limit int) ([]*account.Account, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	matched := make([]*account.Account, 0, len(r.order))
	// Newest first, matching the MySQL ordering.
	for i := len(r.order) - 1; i >= 0; i-- {
		acc := r.byRFID[r.order[i]]
		if q != "" && !matchesAccount(acc, q) {
			continue
		}
		matched = append(matched, acc)
	}
	total := int64(len(matched))
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*account.Account, 0, end-offset)
	for _, acc := range matched[offset:end] {
		out = append(out, cloneAccount(acc))
	}
	return out, total, nil
}

func matchesAccount(acc *account.Account, q string) bool {
	for _, field := range []string{acc.RFID, acc.Name, acc.Phone, acc.CarNumber} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
