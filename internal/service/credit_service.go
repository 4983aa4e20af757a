package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

type DebitResult struct {
	OK         bool `json:"ok"`
	NewBalance int  `json:"new_balance"`
}

type CreditService interface {
	PrecheckAndDebit(ctx context.Context, tx *gorm.DB, ownerID int64, cost int, actionType string, details map[string]any) (DebitResult, error)
	Grant(ctx context.Context, tx *gorm.DB, ownerID int64, amount int, reason string, details map[string]any) (int, error)
	Balance(ctx context.Context, ownerID int64) (int, error)
	History(ctx context.Context, ownerID int64, limit int) ([]*models.CreditLedgerEntry, error)
}

type creditService struct {
	db *gorm.DB
	ar repository.AccountRepository
	lr repository.CreditLedgerRepository
}

func NewCreditService(db *gorm.DB, ar repository.AccountRepository, lr repository.CreditLedgerRepository) CreditService {
	return &creditService{
		db: db,
		ar: ar,
		lr: lr,
	}
}

// PostCost prices one run: the length tier plus a per-image charge.
func PostCost(p models.PricingPolicy, length string, imageCount int) int {
	var base int
	switch length {
	case models.LengthShort:
		base = p.CostShort
	case models.LengthLong:
		base = p.CostLong
	default:
		base = p.CostMedium
	}
	if imageCount < 0 {
		imageCount = 0
	}
	return base + p.CostImage*imageCount
}

// PrecheckAndDebit takes cost from the balance and appends the matching
// ledger row. When tx is given both writes join the caller's unit of work.
// An insufficient balance returns OK=false and changes nothing.
func (s *creditService) PrecheckAndDebit(ctx context.Context, tx *gorm.DB, ownerID int64, cost int, actionType string, details map[string]any) (DebitResult, error) {
	if cost < 0 {
		return DebitResult{}, ErrInvalidAmount
	}
	if tx == nil {
		return database.Transact(ctx, s.db, func(tx *gorm.DB) (DebitResult, error) {
			return s.debit(ctx, tx, ownerID, cost, actionType, details)
		})
	}
	return s.debit(ctx, tx, ownerID, cost, actionType, details)
}

func (s *creditService) debit(ctx context.Context, tx *gorm.DB, ownerID int64, cost int, actionType string, details map[string]any) (DebitResult, error) {
	account, err := s.ar.GetByID(ctx, tx, ownerID)
	if err != nil {
		return DebitResult{}, err
	}
	if account == nil {
		return DebitResult{}, ErrAccountNotFound
	}
	if account.Credit < cost {
		slog.Info("insufficient credit", "owner_id", ownerID, "balance", account.Credit, "cost", cost)
		return DebitResult{OK: false, NewBalance: account.Credit}, nil
	}

	ok, err := s.ar.Debit(ctx, tx, ownerID, cost)
	if err != nil {
		return DebitResult{}, err
	}
	if !ok {
		// balance moved between the read and the guarded update
		current, err := s.ar.GetByID(ctx, tx, ownerID)
		if err != nil {
			return DebitResult{}, err
		}
		return DebitResult{OK: false, NewBalance: current.Credit}, nil
	}

	entry := &models.CreditLedgerEntry{
		OwnerID:    ownerID,
		Amount:     -cost,
		ActionType: actionType,
		Details:    datatypes.JSONMap(withDefaultDetails(details)),
	}
	if _, err := s.lr.Create(ctx, tx, entry); err != nil {
		return DebitResult{}, fmt.Errorf("append ledger entry: %w", err)
	}

	return DebitResult{OK: true, NewBalance: account.Credit - cost}, nil
}

func (s *creditService) Grant(ctx context.Context, tx *gorm.DB, ownerID int64, amount int, reason string, details map[string]any) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	grant := func(tx *gorm.DB) (int, error) {
		if err := s.ar.Credit(ctx, tx, ownerID, amount); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrAccountNotFound
			}
			return 0, err
		}
		entry := &models.CreditLedgerEntry{
			OwnerID:    ownerID,
			Amount:     amount,
			ActionType: reason,
			Details:    datatypes.JSONMap(withDefaultDetails(details)),
		}
		if _, err := s.lr.Create(ctx, tx, entry); err != nil {
			return 0, fmt.Errorf("append ledger entry: %w", err)
		}
		account, err := s.ar.GetByID(ctx, tx, ownerID)
		if err != nil {
			return 0, err
		}
		return account.Credit, nil
	}

	var (
		balance int
		err     error
	)
	if tx == nil {
		balance, err = database.Transact(ctx, s.db, grant)
	} else {
		balance, err = grant(tx)
	}
	if err != nil {
		return 0, err
	}

	slog.Info("credit granted", "owner_id", ownerID, "amount", amount, "reason", reason, "balance", balance)
	return balance, nil
}

func (s *creditService) Balance(ctx context.Context, ownerID int64) (int, error) {
	account, err := s.ar.GetByID(ctx, nil, ownerID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, ErrAccountNotFound
	}
	return account.Credit, nil
}

func (s *creditService) History(ctx context.Context, ownerID int64, limit int) ([]*models.CreditLedgerEntry, error) {
	return s.lr.ListByOwner(ctx, ownerID, limit)
}

func withDefaultDetails(details map[string]any) map[string]any {
	out := make(map[string]any, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	if _, ok := out["time"]; !ok {
		out["time"] = time.Now().UTC().Format(time.RFC3339)
	}
	return out
}
