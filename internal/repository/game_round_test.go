package repository

import (
	"context"
	"testing"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameRoundRepository_SetMove(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewGameRoundRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)
	round, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)
	require.NotNil(t, round)

	// 第一次出招生效
	ok, err := repo.SetMove(ctx, round.ID, models.MatchPositionPlayer1, "rock")
	require.NoError(t, err)
	assert.True(t, ok)

	// 同一座位重复出招被拒绝
	ok, err = repo.SetMove(ctx, round.ID, models.MatchPositionPlayer1, "paper")
	require.NoError(t, err)
	assert.False(t, ok)

	// 另一座位不受影响
	ok, err = repo.SetMove(ctx, round.ID, models.MatchPositionPlayer2, "scissors")
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID(ctx, round.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Player1Move)
	require.NotNil(t, found.Player2Move)
	assert.Equal(t, "rock", *found.Player1Move)
	assert.Equal(t, "scissors", *found.Player2Move)
	assert.True(t, found.BothMovesPresent())
}

func TestGameRoundRepository_SetMove_InvalidPosition(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewGameRoundRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)
	round, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)

	_, err = repo.SetMove(ctx, round.ID, 3, "rock")
	assert.Error(t, err)
}

func TestGameRoundRepository_BeginEvaluation(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewGameRoundRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)
	round, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)

	// 结算权只能被声明一次：第二次出招到达和超时回调
	// 可能同时尝试结算，只有一方能赢
	ok, err := repo.BeginEvaluation(ctx, round.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.BeginEvaluation(ctx, round.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGameRoundRepository_FindCurrent(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewGameRoundRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	round1, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)
	require.NotNil(t, round1)
	assert.Equal(t, 1, round1.RoundNumber)

	// 完成第1回合并创建第2回合后，当前回合由数据推导出来
	require.NoError(t, repo.Complete(ctx, round1.ID, &users[0].ID))
	require.NoError(t, repo.Create(ctx, &models.GameRound{
		MatchID:     match.ID,
		RoundNumber: 2,
		Status:      models.RoundStatusAwaitingMoves,
	}))

	current, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 2, current.RoundNumber)

	// 全部完成后没有当前回合
	require.NoError(t, repo.Complete(ctx, current.ID, nil))
	current, err = repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestGameRoundRepository_CountWins(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewGameRoundRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	round1, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(ctx, round1.ID, &users[0].ID))

	// 平局回合不计入任何人的胜场
	require.NoError(t, repo.Create(ctx, &models.GameRound{MatchID: match.ID, RoundNumber: 2, Status: models.RoundStatusAwaitingMoves}))
	round2, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(ctx, round2.ID, nil))

	require.NoError(t, repo.Create(ctx, &models.GameRound{MatchID: match.ID, RoundNumber: 3, Status: models.RoundStatusAwaitingMoves}))
	round3, err := repo.FindCurrent(ctx, match.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(ctx, round3.ID, &users[0].ID))

	wins, err := repo.CountWins(ctx, match.ID, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), wins)

	wins, err = repo.CountWins(ctx, match.ID, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wins)

	completed, err := repo.CountCompleted(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), completed)
}
