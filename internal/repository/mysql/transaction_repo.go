package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

type transactionRepo struct {
	db *gorm.DB
}

// NewTransactionRepository creates the MySQL-backed dispense ledger.
func NewTransactionRepository(db *gorm.DB) dispense.Repository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, t *dispense.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transactionRepo) filtered(ctx context.Context, f dispense.Filter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&dispense.Transaction{})
	if f.RFID != "" {
		db = db.Where("rfid_uid = ?", f.RFID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.FuelType != "" {
		db = db.Where("fuel_type = ?", f.FuelType)
	}
	return db
}

func (r *transactionRepo) List(ctx context.Context, f dispense.Filter, offset, limit int) ([]*dispense.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []*dispense.Transaction
	if err := r.filtered(ctx, f).
		Order("time DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *transactionRepo) Count(ctx context.Context, f dispense.Filter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *transactionRepo) ListAll(ctx context.Context, f dispense.Filter) ([]*dispense.Transaction, error) {
	var list []*dispense.Transaction
	if err := r.filtered(ctx, f).Order("time DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
