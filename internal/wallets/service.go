package wallets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/taskrent-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/money"
	"github.com/angelmondragon/taskrent-backend/pkg/security"
)

// Ledger moves balance inside a caller-owned transaction.
type Ledger interface {
	Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cents money.Cents) error
	Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cents money.Cents) error
}

type Service struct {
	repo     *Repository
	password config.PasswordConfig
	logg     *logger.Logger
}

var _ Ledger = (*Service)(nil)

func NewService(repo *Repository, password config.PasswordConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("wallet repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Service{repo: repo, password: password, logg: logg}, nil
}

// Balance returns zero for users without a wallet.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (money.Cents, error) {
	wallet, err := s.repo.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return money.Cents(wallet.BalanceCents), nil
}

// SetPaymentPassword hashes and stores a six digit payment password.
func (s *Service) SetPaymentPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if err := security.ValidatePaymentPassword(password); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "支付密码须为6位数字")
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash payment password")
	}
	if err := s.repo.SetPasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment password")
	}
	s.logg.Info(s.logg.WithField(ctx, "user_id", userID.String()), "payment password updated")
	return nil
}

// VerifyPaymentPassword rejects unknown, unset and mismatching passwords alike.
func (s *Service) VerifyPaymentPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if err := security.ValidatePaymentPassword(password); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "支付密码须为6位数字")
	}
	wallet, err := s.repo.Find(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if wallet == nil || wallet.PaymentPasswordHash == nil {
		return pkgerrors.New(pkgerrors.CodeRejected, "未设置支付密码")
	}
	ok, err := security.VerifyPassword(password, *wallet.PaymentPasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify payment password")
	}
	if !ok {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "payment password mismatch")
		return pkgerrors.New(pkgerrors.CodeRejected, "支付密码错误")
	}
	return nil
}

func (s *Service) Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cents money.Cents) error {
	if err := s.repo.WithTx(tx).Debit(ctx, userID, int64(cents)); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return pkgerrors.New(pkgerrors.CodeRejected, "余额不足").
				WithDetails(map[string]any{"required_cents": int64(cents)})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
	}
	return nil
}

func (s *Service) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cents money.Cents) error {
	if err := s.repo.WithTx(tx).Credit(ctx, userID, int64(cents)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}
	return nil
}
