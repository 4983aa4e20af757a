package service

import (
	"context"
	"errors"
	"strings"

	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email already registered")

type AccountService interface {
	Open(ctx context.Context, email, name string, referrerID *int64) (*models.Account, error)
	Info(ctx context.Context, id int64) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type accountService struct {
	db      *gorm.DB
	ar      repository.AccountRepository
	credits CreditService
	pricing models.PricingPolicy
}

func NewAccountService(db *gorm.DB, ar repository.AccountRepository, credits CreditService, pricing models.PricingPolicy) AccountService {
	return &accountService{
		db:      db,
		ar:      ar,
		credits: credits,
		pricing: pricing,
	}
}

// Open creates an account at zero balance and grants the signup bonus, plus
// the referral bonus to the referrer when one is named. Every credit goes
// through the ledger.
func (s *accountService) Open(ctx context.Context, email, name string, referrerID *int64) (*models.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}

	existing, err := s.ar.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	return database.Transact(ctx, s.db, func(tx *gorm.DB) (*models.Account, error) {
		if referrerID != nil {
			referrer, err := s.ar.GetByID(ctx, tx, *referrerID)
			if err != nil {
				return nil, err
			}
			if referrer == nil {
				referrerID = nil
			}
		}

		account := &models.Account{Email: email, Name: name, ReferrerID: referrerID}
		if _, err := s.ar.Create(ctx, tx, account); err != nil {
			return nil, err
		}

		if s.pricing.SignupBonus > 0 {
			balance, err := s.credits.Grant(ctx, tx, account.ID, s.pricing.SignupBonus, models.ActionSignupBonus, nil)
			if err != nil {
				return nil, err
			}
			account.Credit = balance
		}

		if referrerID != nil && s.pricing.ReferralBonus > 0 {
			details := map[string]any{"referred_account_id": account.ID}
			if _, err := s.credits.Grant(ctx, tx, *referrerID, s.pricing.ReferralBonus, models.ActionReferralBonus, details); err != nil {
				return nil, err
			}
		}

		return account, nil
	})
}

func (s *accountService) Info(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.ar.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// FindByEmail returns nil when no account uses email.
func (s *accountService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.ar.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}
