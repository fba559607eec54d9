package service

import (
	"context"
	"errors"
	"strings"

	"github.com/example/fueldispenser/internal/config"
	"github.com/example/fueldispenser/internal/datamodels/account"
)

// AccountService owns account lifecycle and profile metadata. It never moves
// balances except through the explicit administrative override.
type AccountService struct {
	repo     account.Repository
	adminTag string
}

// NewAccountService creates the account service. The admin tag comes from
// configuration; recognition is a capability check here, not a comparison
// scattered through handlers.
func NewAccountService(repo account.Repository, admin *config.AdminConfig) *AccountService {
	tag := ""
	if admin != nil {
		tag = strings.TrimSpace(admin.Tag)
	}
	return &AccountService{repo: repo, adminTag: tag}
}

// IsAdminTag reports whether the tag carries the administrative capability.
func (s *AccountService) IsAdminTag(tag string) bool {
	return s.adminTag != "" && strings.EqualFold(strings.TrimSpace(tag), s.adminTag)
}

// AdminTag returns the configured administrative tag.
func (s *AccountService) AdminTag() string {
	return s.adminTag
}

// Upsert creates the account or merges the provided profile fields. created
// reports which happened. Balance and counters are never touched.
func (s *AccountService) Upsert(ctx context.Context, rfid string, p account.Profile) (*account.Account, bool, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, false, ErrInvalidIdentity
	}
	return s.repo.Upsert(ctx, rfid, p)
}

// Lookup returns the account for a tag.
func (s *AccountService) Lookup(ctx context.Context, rfid string) (*account.Account, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, ErrInvalidIdentity
	}
	acc, err := s.repo.GetByRFID(ctx, rfid)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return acc, nil
}

// SetBalance is the administrative balance override.
func (s *AccountService) SetBalance(ctx context.Context, rfid string, balance int64) (*account.Account, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, ErrInvalidIdentity
	}
	if balance < 0 {
		return nil, ErrInvalidAmount
	}
	acc, err := s.repo.SetBalance(ctx, rfid, balance)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return acc, nil
}

// Delete hard-deletes the account and returns the removed snapshot. Ledger
// records for the tag are kept.
func (s *AccountService) Delete(ctx context.Context, rfid string) (*account.Account, error) {
	rfid = strings.TrimSpace(rfid)
	if rfid == "" {
		return nil, ErrInvalidIdentity
	}
	acc, err := s.repo.Delete(ctx, rfid)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return acc, nil
}

// List searches accounts with pagination. page is 1-based.
func (s *AccountService) List(ctx context.Context, search string, page, limit int) ([]*account.Account, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.Search(ctx, strings.TrimSpace(search), (page-1)*limit, limit)
}

func translateNotFound(err error) error {
	if errors.Is(err, account.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}
