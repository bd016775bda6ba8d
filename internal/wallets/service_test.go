package wallets

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/taskrent-backend/pkg/config"
	"github.com/angelmondragon/taskrent-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/money"
)

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}, logger.New(logger.Options{ServiceName: "wallets-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, repo
}

func TestVerifyPaymentPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	err := svc.VerifyPaymentPassword(ctx, userID, "123456")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRejected, pkgerrors.CodeOf(err))

	require.NoError(t, svc.SetPaymentPassword(ctx, userID, "123456"))
	require.NoError(t, svc.VerifyPaymentPassword(ctx, userID, "123456"))

	err = svc.VerifyPaymentPassword(ctx, userID, "654321")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRejected, pkgerrors.CodeOf(err))
	assert.Equal(t, "支付密码错误", pkgerrors.As(err).Message())

	err = svc.VerifyPaymentPassword(ctx, userID, "12")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSetPaymentPasswordKeepsBalance(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.Credit(ctx, userID, 500))
	require.NoError(t, svc.SetPaymentPassword(ctx, userID, "000000"))

	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(500), balance)
}

func TestDebitAndCredit(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	require.NoError(t, svc.Credit(ctx, repo.db, userID, 1000))
	require.NoError(t, svc.Credit(ctx, repo.db, userID, 250))
	require.NoError(t, svc.Debit(ctx, repo.db, userID, 1200))

	balance, err = svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(50), balance)

	err = svc.Debit(ctx, repo.db, userID, 51)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRejected, pkgerrors.CodeOf(err))
	assert.Equal(t, "余额不足", pkgerrors.As(err).Message())

	err = svc.Debit(ctx, repo.db, uuid.New(), 1)
	assert.Equal(t, pkgerrors.CodeRejected, pkgerrors.CodeOf(err))

	require.NoError(t, svc.Debit(ctx, repo.db, userID, 0))
}
