package memory

import (
	"context"
	"sync"

	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

type transactionRepo struct {
	mu     sync.Mutex
	nextID int64
	recs   []*dispense.Transaction
}

// NewTransactionRepository creates an in-memory dispense ledger.
func NewTransactionRepository() dispense.Repository {
	return &transactionRepo{}
}

func (r *transactionRepo) append(t *dispense.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	cp := *t
	r.recs = append(r.recs, &cp)
}

func (r *transactionRepo) Create(ctx context.Context, t *dispense.Transaction) error {
	r.append(t)
	return nil
}

func matches(t *dispense.Transaction, f dispense.Filter) bool {
	if f.RFID != "" && t.RFID != f.RFID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.FuelType != "" && t.FuelType != f.FuelType {
		return false
	}
	return true
}

func (r *transactionRepo) filtered(f dispense.Filter) []*dispense.Transaction {
	// Newest first: records are appended in time order.
	out := make([]*dispense.Transaction, 0, len(r.recs))
	for i := len(r.recs) - 1; i >= 0; i-- {
		if matches(r.recs[i], f) {
			cp := *r.recs[i]
			out = append(out, &cp)
		}
	}
	return out
}

func (r *transactionRepo) List(ctx context.Context, f dispense.Filter, offset, limit int) ([]*dispense.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.filtered(f)
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *transactionRepo) Count(ctx context.Context, f dispense.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.recs {
		if matches(t, f) {
			n++
		}
	}
	return n, nil
}

func (r *transactionRepo) ListAll(ctx context.Context, f dispense.Filter) ([]*dispense.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filtered(f), nil
}
