package models

import (
	"time"

	"gorm.io/datatypes"
)

// CreditLedgerEntry is append-only. The sum of an account's entries equals
// its balance.
type CreditLedgerEntry struct {
	ID         int64             `gorm:"primaryKey" json:"id"`
	OwnerID    int64             `gorm:"index;not null" json:"owner_id"`
	Amount     int               `gorm:"not null" json:"amount"`
	ActionType string            `gorm:"size:50;not null" json:"action_type"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

const (
	ActionAutoPosting   = "AUTO_POSTING"
	ActionManualPosting = "MANUAL_POSTING"
	ActionSignupBonus   = "SIGNUP_BONUS"
	ActionReferralBonus = "REFERRAL_BONUS"
	ActionRefund        = "REFUND"
	ActionAdjustment    = "ADJUSTMENT"
)

type PricingPolicy struct {
	CostShort     int `yaml:"cost_short" json:"cost_short"`
	CostMedium    int `yaml:"cost_medium" json:"cost_medium"`
	CostLong      int `yaml:"cost_long" json:"cost_long"`
	CostImage     int `yaml:"cost_image" json:"cost_image"`
	SignupBonus   int `yaml:"signup_bonus" json:"signup_bonus"`
	ReferralBonus int `yaml:"referral_bonus" json:"referral_bonus"`
}

func DefaultPricing() PricingPolicy {
	return PricingPolicy{
		CostShort:     10,
		CostMedium:    20,
		CostLong:      30,
		CostImage:     5,
		SignupBonus:   100,
		ReferralBonus: 50,
	}
}
