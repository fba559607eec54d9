package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/fueldispenser/internal/datamodels/account"
	"github.com/example/fueldispenser/internal/datamodels/dispense"
)

type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepository creates the MySQL-backed account store.
func NewAccountRepository(db *gorm.DB) account.Repository {
	return &accountRepo{db: db}
}

func (r *accountRepo) GetByRFID(ctx context.Context, rfid string) (*account.Account, error) {
	var acc account.Account
	if err := r.db.WithContext(ctx).Where("rfid_uid = ?", rfid).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (r *accountRepo) Upsert(ctx context.Context, rfid string, p account.Profile) (*account.Account, bool, error) {
	acc := account.Account{RFID: rfid}
	if p.Name != nil {
		acc.Name = *p.Name
	}
	if p.Phone != nil {
		acc.Phone = *p.Phone
	}
	if p.CarNumber != nil {
		acc.CarNumber = *p.CarNumber
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rfid_uid"}},
		DoNothing: true,
	}).Create(&acc)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0

	// Existing account: merge only the fields that were supplied. Balance and
	// the counters are never part of this update.
	if !created {
		updates := map[string]interface{}{}
		if p.Name != nil {
			updates["name"] = *p.Name
		}
		if p.Phone != nil {
			updates["phone"] = *p.Phone
		}
		if p.CarNumber != nil {
			updates["car_number"] = *p.CarNumber
		}
		if len(updates) > 0 {
			if err := r.db.WithContext(ctx).Model(&account.Account{}).
				Where("rfid_uid = ?", rfid).
				Updates(updates).Error; err != nil {
				return nil, false, err
			}
		}
	}

	out, err := r.GetByRFID(ctx, rfid)
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (r *accountRepo) CreditTopUp(ctx context.Context, p account.TopUpParams) (*account.Account, error) {
	assign := map[string]interface{}{
		"balance":           gorm.Expr("balance + ?", p.Amount),
		"total_topups":      gorm.Expr("total_topups + 1"),
		"last_topup":        p.At,
		"last_topup_amount": p.Amount,
	}
	if p.CarNumber != "" {
		assign["car_number"] = p.CarNumber
	}
	acc := account.Account{
		RFID:            p.RFID,
		Balance:         p.Amount,
		TotalTopups:     1,
		LastTopup:       &p.At,
		LastTopupAmount: p.Amount,
		CarNumber:       p.CarNumber,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rfid_uid"}},
		DoUpdates: clause.Assignments(assign),
	}).Create(&acc).Error; err != nil {
		return nil, err
	}
	return r.GetByRFID(ctx, p.RFID)
}

func (r *accountRepo) DebitDispense(ctx context.Context, p account.DebitParams) (*account.Account, *dispense.Transaction, bool, error) {
	fuel := p.FuelType
	if fuel == "" {
		fuel = dispense.DefaultFuelType
	}

	var rec *dispense.Transaction
	ok := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"balance":              gorm.Expr("balance - ?", p.Amount),
			"total_dispenses":      gorm.Expr("total_dispenses + 1"),
			"last_dispense":        p.At,
			"last_dispense_volume": p.VolumeLitre,
			"last_dispense_amount": p.Amount,
			"last_dispense_status": dispense.StatusSuccess,
		}
		if p.CarNumber != "" {
			updates["car_number"] = p.CarNumber
		}

		// The WHERE clause is the authoritative balance check: the debit and
		// the predicate are one statement, so concurrent debits cannot both
		// pass it.
		res := tx.Model(&account.Account{}).
			Where("rfid_uid = ? AND balance >= ?", p.RFID, p.Amount).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		t := &dispense.Transaction{
			RFID:        p.RFID,
			VolumeLitre: p.VolumeLitre,
			Amount:      p.Amount,
			FuelType:    fuel,
			Status:      dispense.StatusSuccess,
			Time:        p.At,
		}
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		rec = t
		ok = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	if !ok {
		return nil, nil, false, nil
	}
	acc, err := r.GetByRFID(ctx, p.RFID)
	if err != nil {
		return nil, nil, false, err
	}
	return acc, rec, true, nil
}

func (r *accountRepo) SetBalance(ctx context.Context, rfid string, balance int64) (*account.Account, error) {
	if _, err := r.GetByRFID(ctx, rfid); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&account.Account{}).
		Where("rfid_uid = ?", rfid).
		Update("balance", balance).Error; err != nil {
		return nil, err
	}
	return r.GetByRFID(ctx, rfid)
}

func (r *accountRepo) Delete(ctx context.Context, rfid string) (*account.Account, error) {
	acc, err := r.GetByRFID(ctx, rfid)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("rfid_uid = ?", rfid).Delete(&account.Account{}).Error; err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *accountRepo) Search(ctx context.Context, query string, offset, limit int) ([]*account.Account, int64, error) {
	db := r.db.WithContext(ctx).Model(&account.Account{})
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		db = db.Where(
			"LOWER(rfid_uid) LIKE ? OR LOWER(name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(car_number) LIKE ?",
			like, like, like, like,
		)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 10
	}
	var list []*account.Account
	if err := db.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
