package repository

import (
	"context"
	"testing"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeTransactionRepository_CreateAndFind(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewStakeTransactionRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 1)
	lobby := CreateTestLobby(t, db, users[0].ID, 500_000_000, 2)

	tx := &models.StakeTransaction{
		OrderNo:        "STK20260828000001",
		UserID:         users[0].ID,
		LobbyID:        &lobby.ID,
		Type:           models.StakeTxTypeStake,
		AmountLamports: 500_000_000,
		TxHash:         "5UfDu...sig",
		Status:         models.StakeTxStatusPending,
		Metadata:       models.JSONMap{"slot": float64(312345678)},
	}
	err := repo.Create(ctx, tx)
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)

	found, err := repo.FindByOrderNo(ctx, "STK20260828000001")
	require.NoError(t, err)
	assert.Equal(t, int64(500_000_000), found.AmountLamports)

	found, err = repo.FindByTxHash(ctx, "5UfDu...sig")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)

	// 订单号唯一
	dup := &models.StakeTransaction{
		OrderNo: "STK20260828000001",
		UserID:  users[0].ID,
		Type:    models.StakeTxTypeStake,
		Status:  models.StakeTxStatusPending,
	}
	assert.Error(t, repo.Create(ctx, dup))
}

func TestStakeTransactionRepository_MarkConfirmed(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewStakeTransactionRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 1)
	tx := &models.StakeTransaction{
		OrderNo:        "PAY20260828000001",
		UserID:         users[0].ID,
		Type:           models.StakeTxTypePayout,
		AmountLamports: 995_000_000,
		Status:         models.StakeTxStatusPending,
	}
	require.NoError(t, repo.Create(ctx, tx))

	require.NoError(t, repo.MarkConfirmed(ctx, tx.ID, "payout-sig"))

	found, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StakeTxStatusConfirmed, found.Status)
	assert.Equal(t, "payout-sig", found.TxHash)
	assert.NotNil(t, found.ConfirmedAt)
}

func TestStakeTransactionRepository_MarkFailed(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewStakeTransactionRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 1)
	tx := &models.StakeTransaction{
		OrderNo:        "RFD20260828000001",
		UserID:         users[0].ID,
		Type:           models.StakeTxTypeRefund,
		AmountLamports: 100,
		Status:         models.StakeTxStatusPending,
	}
	require.NoError(t, repo.Create(ctx, tx))

	require.NoError(t, repo.MarkFailed(ctx, tx.ID, "RPC节点超时"))

	found, err := repo.FindByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StakeTxStatusFailed, found.Status)
	assert.Equal(t, "RPC节点超时", found.FailReason)
}

func TestStakeTransactionRepository_ListPending(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewStakeTransactionRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 1)
	txs := []*models.StakeTransaction{
		{OrderNo: "A1", UserID: users[0].ID, Type: models.StakeTxTypeStake, Status: models.StakeTxStatusPending},
		{OrderNo: "A2", UserID: users[0].ID, Type: models.StakeTxTypePayout, Status: models.StakeTxStatusPending},
		{OrderNo: "A3", UserID: users[0].ID, Type: models.StakeTxTypePayout, Status: models.StakeTxStatusConfirmed},
	}
	for _, tx := range txs {
		require.NoError(t, repo.Create(ctx, tx))
	}

	pending, err := repo.ListPending(ctx, "")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pending, err = repo.ListPending(ctx, models.StakeTxTypePayout)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "A2", pending[0].OrderNo)
}

func TestStakeTransactionRepository_ListByUser(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewStakeTransactionRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	for i, orderNo := range []string{"B1", "B2", "B3"} {
		userID := users[0].ID
		if i == 2 {
			userID = users[1].ID
		}
		require.NoError(t, repo.Create(ctx, &models.StakeTransaction{
			OrderNo: orderNo,
			UserID:  userID,
			Type:    models.StakeTxTypeStake,
			Status:  models.StakeTxStatusConfirmed,
		}))
	}

	pagination := NewPagination(1, 10)
	list, err := repo.ListByUser(ctx, users[0].ID, pagination)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), pagination.Total)
}
