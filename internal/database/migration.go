package database

import (
	"fmt"

	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	// 定义需要迁移的模型（注意顺序：被引用的表在前）
	migrationModels := []interface{}{
		// 玩家
		&models.User{},

		// 锦标赛（大厅的tournament_id引用）
		&models.Tournament{},
		&models.TournamentParticipant{},

		// 大厅
		&models.Lobby{},
		&models.LobbyParticipant{},

		// 比赛
		&models.Match{},
		&models.MatchParticipant{},
		&models.GameRound{},

		// 链上账务
		&models.StakeTransaction{},
	}

	// 执行迁移
	logger.Info("开始数据库迁移...")

	// 设置 SQLite 专用配置，避免锁定问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	indexes := []string{
		// 玩家表索引
		"CREATE INDEX IF NOT EXISTS idx_users_wallet_address ON users(wallet_address)",

		// 大厅索引
		"CREATE INDEX IF NOT EXISTS idx_lobbies_status ON lobbies(status)",
		"CREATE INDEX IF NOT EXISTS idx_lobbies_creator_id ON lobbies(creator_id)",
		"CREATE INDEX IF NOT EXISTS idx_lobby_participants_user_id ON lobby_participants(user_id)",

		// 比赛索引
		"CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)",
		"CREATE INDEX IF NOT EXISTS idx_matches_tournament_id ON matches(tournament_id)",
		"CREATE INDEX IF NOT EXISTS idx_match_participants_user_id ON match_participants(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_game_rounds_match_id ON game_rounds(match_id)",

		// 锦标赛索引
		"CREATE INDEX IF NOT EXISTS idx_tournaments_status ON tournaments(status)",
		"CREATE INDEX IF NOT EXISTS idx_tournament_participants_user_id ON tournament_participants(user_id)",

		// 链上账务索引
		"CREATE INDEX IF NOT EXISTS idx_stake_transactions_user_id ON stake_transactions(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_stake_transactions_status ON stake_transactions(status)",
		"CREATE INDEX IF NOT EXISTS idx_stake_transactions_tx_hash ON stake_transactions(tx_hash)",
		"CREATE INDEX IF NOT EXISTS idx_stake_transactions_created_at ON stake_transactions(created_at)",
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
		}
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 获取所有表名
	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	// 删除所有表
	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
