package repository

import (
	"context"

	"gorm.io/gorm"
)

// conn returns the transaction when one is supplied, otherwise the base handle.
func conn(ctx context.Context, db *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
