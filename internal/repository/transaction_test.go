package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionManager_CommitAndRollback(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	manager := NewTransactionManager(db)
	ctx := context.Background()

	// 提交后数据可见
	tx, err := manager.Begin(ctx)
	require.NoError(t, err)
	require.NotNil(t, tx.GetDB())

	user := &models.User{WalletAddress: testWalletAddress(0), Nickname: "事务玩家"}
	require.NoError(t, tx.User().Create(ctx, user))
	require.NoError(t, tx.Commit())

	found, err := NewUserRepository(db).FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "事务玩家", found.Nickname)

	// 回滚后数据不可见
	tx, err = manager.Begin(ctx)
	require.NoError(t, err)

	ghost := &models.User{WalletAddress: testWalletAddress(1)}
	require.NoError(t, tx.User().Create(ctx, ghost))
	require.NoError(t, tx.Rollback())

	_, err = NewUserRepository(db).FindByWalletAddress(ctx, testWalletAddress(1))
	assert.Error(t, err)

	// 重复提交/回滚报错
	assert.Error(t, tx.Commit())
	assert.Error(t, tx.Rollback())
}

func TestTransactionManager_WithTransaction(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	manager := NewTransactionManager(db)
	ctx := context.Background()

	// 函数返回错误时整体回滚
	boom := errors.New("结算失败")
	err := manager.WithTransaction(ctx, func(tx *Transaction) error {
		user := &models.User{WalletAddress: testWalletAddress(2)}
		if err := tx.User().Create(ctx, user); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewUserRepository(db).FindByWalletAddress(ctx, testWalletAddress(2))
	assert.Error(t, err)

	// 正常返回时提交
	err = manager.WithTransaction(ctx, func(tx *Transaction) error {
		return tx.User().Create(ctx, &models.User{WalletAddress: testWalletAddress(3)})
	})
	require.NoError(t, err)

	_, err = NewUserRepository(db).FindByWalletAddress(ctx, testWalletAddress(3))
	assert.NoError(t, err)
}

func TestTransaction_RepositoriesShareTx(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	manager := NewTransactionManager(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)

	// 同一事务内创建比赛及参与者，提交后关联完整
	err := manager.WithTransaction(ctx, func(tx *Transaction) error {
		match := &models.Match{
			Status:      models.MatchStatusWaiting,
			StakeAmount: 1000000,
		}
		if err := tx.Match().Create(ctx, match); err != nil {
			return err
		}
		for i, u := range users {
			p := &models.MatchParticipant{
				MatchID:  match.ID,
				UserID:   u.ID,
				Position: i + 1,
			}
			if err := tx.MatchParticipant().Add(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.MatchParticipant{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
