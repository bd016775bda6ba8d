package wallets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/taskrent-backend/pkg/db/models"
)

// ErrInsufficientBalance is returned by Debit when the wallet cannot cover the amount.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Find returns gorm.ErrRecordNotFound when the user never had a wallet.
func (r *Repository) Find(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Debit subtracts cents only when the balance covers them.
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, cents int64) error {
	if cents <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance_cents >= ?", userID, cents).
		Updates(map[string]any{
			"balance_cents": gorm.Expr("balance_cents - ?", cents),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// Credit adds cents, creating the wallet on first credit.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, cents int64) error {
	if cents <= 0 {
		return nil
	}
	now := time.Now().UTC()
	wallet := models.Wallet{UserID: userID, BalanceCents: cents, CreatedAt: now, UpdatedAt: now}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance_cents": gorm.Expr("wallets.balance_cents + excluded.balance_cents"),
				"updated_at":    now,
			}),
		}).
		Create(&wallet).Error
}

// SetPasswordHash stores the hash, creating an empty wallet when needed.
func (r *Repository) SetPasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	now := time.Now().UTC()
	wallet := models.Wallet{UserID: userID, PaymentPasswordHash: &hash, CreatedAt: now, UpdatedAt: now}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"payment_password_hash": hash,
				"updated_at":            now,
			}),
		}).
		Create(&wallet).Error
}
