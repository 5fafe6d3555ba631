package repository

import (
	"context"
	"testing"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentRepository_TransitionStatus(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewTournamentRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 4)
	tournament := CreateTestTournament(t, db, []uint{users[0].ID, users[1].ID, users[2].ID, users[3].ID}, 400)

	ok, err := repo.TransitionStatus(ctx, tournament.ID, models.TournamentStatusInProgress, models.TournamentStatusCompleted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, tournament.ID, models.TournamentStatusInProgress, models.TournamentStatusCompleted)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTournamentRepository_FindByIDWithDetails(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewTournamentRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 4)
	tournament := CreateTestTournament(t, db, []uint{users[0].ID, users[1].ID, users[2].ID, users[3].ID}, 400)

	m := CreateTestMatch(t, db, users[0].ID, users[1].ID, 100)
	db.Model(&models.Match{}).Where("id = ?", m.ID).
		Updates(map[string]interface{}{"tournament_id": tournament.ID, "tournament_round": 1})

	found, err := repo.FindByIDWithDetails(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, found.Participants, 4)
	assert.Len(t, found.Matches, 1)
	assert.Equal(t, 2, found.TotalRounds())
}

func TestTournamentParticipantRepository_JoinOrder(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewTournamentParticipantRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 4)
	tournament := CreateTestTournament(t, db, []uint{users[2].ID, users[0].ID, users[3].ID, users[1].ID}, 400)

	// 列表按加入顺序返回，首轮配对依赖这一顺序
	participants, err := repo.ListByTournament(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 4)
	assert.Equal(t, users[2].ID, participants[0].UserID)
	assert.Equal(t, users[0].ID, participants[1].UserID)
	assert.Equal(t, users[3].ID, participants[2].UserID)
	assert.Equal(t, users[1].ID, participants[3].UserID)
}

func TestTournamentParticipantRepository_Eliminate(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewTournamentParticipantRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 4)
	tournament := CreateTestTournament(t, db, []uint{users[0].ID, users[1].ID, users[2].ID, users[3].ID}, 400)

	remaining, err := repo.CountRemaining(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), remaining)

	require.NoError(t, repo.Eliminate(ctx, tournament.ID, users[3].ID, 4))
	require.NoError(t, repo.Eliminate(ctx, tournament.ID, users[2].ID, 3))

	remaining, err = repo.CountRemaining(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), remaining)

	eliminated, err := repo.Find(ctx, tournament.ID, users[3].ID)
	require.NoError(t, err)
	require.NotNil(t, eliminated.EliminatedAt)
	require.NotNil(t, eliminated.FinalPosition)
	assert.Equal(t, 4, *eliminated.FinalPosition)
}

func TestTournamentParticipantRepository_SetFinalPosition(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewTournamentParticipantRepository(db)
	ctx := context.Background()

	users := SeedTestUsers(t, db, 4)
	tournament := CreateTestTournament(t, db, []uint{users[0].ID, users[1].ID, users[2].ID, users[3].ID}, 400)

	// 冠军不会被淘汰，名次单独记录
	require.NoError(t, repo.SetFinalPosition(ctx, tournament.ID, users[0].ID, 1))

	champion, err := repo.Find(ctx, tournament.ID, users[0].ID)
	require.NoError(t, err)
	assert.Nil(t, champion.EliminatedAt)
	require.NotNil(t, champion.FinalPosition)
	assert.Equal(t, 1, *champion.FinalPosition)
}
