package repository

import (
	"context"
	"testing"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRepository_TransitionStatus(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	ok, err := repo.TransitionStatus(ctx, match.ID, models.MatchStatusInProgress, models.MatchStatusShowingResults)
	require.NoError(t, err)
	assert.True(t, ok)

	// 状态守卫不再匹配
	ok, err = repo.TransitionStatus(ctx, match.ID, models.MatchStatusInProgress, models.MatchStatusShowingResults)
	require.NoError(t, err)
	assert.False(t, ok)

	// 完成时写入completed_at
	ok, err = repo.TransitionStatus(ctx, match.ID, models.MatchStatusShowingResults, models.MatchStatusCompleted)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, found.Status)
	assert.NotNil(t, found.CompletedAt)
}

func TestMatchRepository_ClaimPrizeDistribution(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	// 只有第一次声明成功，奖金不会重复发放
	ok, err := repo.ClaimPrizeDistribution(ctx, match.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimPrizeDistribution(ctx, match.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchRepository_SetWinner(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	require.NoError(t, repo.SetWinner(ctx, match.ID, &users[0].ID))
	found, err := repo.FindByID(ctx, match.ID)
	require.NoError(t, err)
	require.NotNil(t, found.WinnerID)
	assert.Equal(t, users[0].ID, *found.WinnerID)

	// 平局时胜者为nil
	require.NoError(t, repo.SetWinner(ctx, match.ID, nil))
	found, err = repo.FindByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Nil(t, found.WinnerID)
}

func TestMatchRepository_FindByIDWithDetails(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	found, err := repo.FindByIDWithDetails(ctx, match.ID)
	require.NoError(t, err)
	assert.Len(t, found.Participants, 2)
	assert.Len(t, found.Rounds, 1)
	assert.Equal(t, models.MatchPositionPlayer1, found.Participants[0].Position)
}

func TestMatchRepository_ListByTournamentRound(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 4)
	tournament := CreateTestTournament(t, db, []uint{users[0].ID, users[1].ID, users[2].ID, users[3].ID}, 400)

	m1 := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)
	m2 := CreateTestMatch(t, db, users[2].ID, users[3].ID, 100)
	db.Model(&models.Match{}).Where("id IN ?", []uint{m1.ID, m2.ID}).
		Updates(map[string]interface{}{"tournament_id": tournament.ID, "tournament_round": 1})

	matches, err := repo.ListByTournamentRound(ctx, tournament.ID, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = repo.ListByTournamentRound(ctx, tournament.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchParticipantRepository_HasActiveGame(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMatchParticipantRepository(db)
	matchRepo := NewMatchRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 3)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	// 参赛双方都有活跃对局
	active, err := repo.HasActiveGame(ctx, users[0].ID)
	require.NoError(t, err)
	assert.True(t, active)

	// 旁观者没有
	active, err = repo.HasActiveGame(ctx, users[2].ID)
	require.NoError(t, err)
	assert.False(t, active)

	// 结果展示期仍算活跃对局
	ok, err := matchRepo.TransitionStatus(ctx, match.ID, models.MatchStatusInProgress, models.MatchStatusShowingResults)
	require.NoError(t, err)
	require.True(t, ok)
	active, err = repo.HasActiveGame(ctx, users[0].ID)
	require.NoError(t, err)
	assert.True(t, active)

	// 完成后释放
	ok, err = matchRepo.TransitionStatus(ctx, match.ID, models.MatchStatusShowingResults, models.MatchStatusCompleted)
	require.NoError(t, err)
	require.True(t, ok)
	active, err = repo.HasActiveGame(ctx, users[0].ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMatchRepository_FindActiveByUser(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewMatchRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 2)
	match := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)

	found, err := repo.FindActiveByUser(ctx, users[1].ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, match.ID, found.ID)

	db.Model(&models.Match{}).Where("id = ?", match.ID).Update("status", models.MatchStatusCompleted)
	found, err = repo.FindActiveByUser(ctx, users[1].ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
