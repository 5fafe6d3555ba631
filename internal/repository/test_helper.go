package repository

import (
	"testing"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型（被引用的表在前）
	err = db.AutoMigrate(
		&models.User{},
		&models.Tournament{},
		&models.TournamentParticipant{},
		&models.Lobby{},
		&models.LobbyParticipant{},
		&models.Match{},
		&models.MatchParticipant{},
		&models.GameRound{},
		&models.StakeTransaction{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedTestUsers 创建测试玩家
func SeedTestUsers(t *testing.T, db *gorm.DB, count int) []models.User {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		users = append(users, models.User{
			WalletAddress: testWalletAddress(i),
			Nickname:      "玩家" + string(rune('A'+i)),
		})
	}
	err := db.Create(&users).Error
	require.NoError(t, err)
	return users
}

// testWalletAddress 生成确定性的测试钱包地址
func testWalletAddress(i int) string {
	base := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosg"
	suffix := []byte{'1' + byte(i%9), 'A' + byte(i%26), 'a' + byte(i%26)}
	return base + string(suffix)
}

// CreateTestLobby 创建测试大厅
func CreateTestLobby(t *testing.T, db *gorm.DB, creatorID uint, stakeAmount int64, maxPlayers int) *models.Lobby {
	lobby := &models.Lobby{
		Name:           "测试大厅",
		CreatorID:      creatorID,
		StakeAmount:    stakeAmount,
		MaxPlayers:     maxPlayers,
		CurrentPlayers: 0,
		Status:         models.LobbyStatusWaiting,
	}
	err := db.Create(lobby).Error
	require.NoError(t, err)
	return lobby
}

// CreateTestMatch 创建测试比赛（含两名参与者和第一回合）
func CreateTestMatch(t *testing.T, db *gorm.DB, player1ID, player2ID uint, stakeAmount int64) *models.Match {
	match := &models.Match{
		Status:         models.MatchStatusInProgress,
		StakeAmount:    stakeAmount,
		TotalPrizePool: stakeAmount * 2,
	}
	now := time.Now()
	match.StartedAt = &now
	err := db.Create(match).Error
	require.NoError(t, err)

	participants := []models.MatchParticipant{
		{MatchID: match.ID, UserID: player1ID, Position: models.MatchPositionPlayer1},
		{MatchID: match.ID, UserID: player2ID, Position: models.MatchPositionPlayer2},
	}
	err = db.Create(&participants).Error
	require.NoError(t, err)

	round := &models.GameRound{
		MatchID:     match.ID,
		RoundNumber: 1,
		Status:      models.RoundStatusAwaitingMoves,
	}
	err = db.Create(round).Error
	require.NoError(t, err)

	return match
}

// CreateTestTournament 创建测试锦标赛（含参与者）
func CreateTestTournament(t *testing.T, db *gorm.DB, userIDs []uint, prizePool int64) *models.Tournament {
	tournament := &models.Tournament{
		Name:           "测试锦标赛",
		MaxPlayers:     len(userIDs),
		CurrentPlayers: len(userIDs),
		PrizePool:      prizePool,
		Status:         models.TournamentStatusInProgress,
	}
	err := db.Create(tournament).Error
	require.NoError(t, err)

	for i, userID := range userIDs {
		participant := &models.TournamentParticipant{
			TournamentID: tournament.ID,
			UserID:       userID,
			JoinOrder:    i + 1,
		}
		err = db.Create(participant).Error
		require.NoError(t, err)
	}

	return tournament
}
