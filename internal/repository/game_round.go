package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"gorm.io/gorm"
)

// GameRoundRepository 对局回合仓储接口
type GameRoundRepository interface {
	BaseRepository
	Create(ctx context.Context, round *models.GameRound) error
	FindByID(ctx context.Context, id uint) (*models.GameRound, error)
	FindByMatchAndNumber(ctx context.Context, matchID uint, roundNumber int) (*models.GameRound, error)
	// FindCurrent 查找比赛的当前回合：回合号最大且未完成的回合。
	// 当前回合永远由数据推导，不依赖任何游标字段。
	FindCurrent(ctx context.Context, matchID uint) (*models.GameRound, error)
	ListByMatch(ctx context.Context, matchID uint) ([]*models.GameRound, error)
	// SetMove 记录出招，仅当该座位尚未出招且回合在等待出招状态时生效
	SetMove(ctx context.Context, roundID uint, position int, move string) (bool, error)
	// BeginEvaluation 声明回合结算权，保证每个回合只被结算一次
	BeginEvaluation(ctx context.Context, roundID uint) (bool, error)
	Complete(ctx context.Context, roundID uint, winnerID *uint) error
	CountWins(ctx context.Context, matchID, userID uint) (int64, error)
	CountCompleted(ctx context.Context, matchID uint) (int64, error)
}

// gameRoundRepo 对局回合仓储实现
type gameRoundRepo struct {
	*BaseRepo
}

// NewGameRoundRepository 创建对局回合仓储
func NewGameRoundRepository(db *gorm.DB) GameRoundRepository {
	return &gameRoundRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建回合
func (r *gameRoundRepo) Create(ctx context.Context, round *models.GameRound) error {
	return r.db.WithContext(ctx).Create(round).Error
}

// FindByID 根据ID查找回合
func (r *gameRoundRepo) FindByID(ctx context.Context, id uint) (*models.GameRound, error) {
	var round models.GameRound
	err := r.db.WithContext(ctx).First(&round, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("回合不存在")
		}
		return nil, err
	}
	return &round, nil
}

// FindByMatchAndNumber 根据比赛与回合号查找
func (r *gameRoundRepo) FindByMatchAndNumber(ctx context.Context, matchID uint, roundNumber int) (*models.GameRound, error) {
	var round models.GameRound
	err := r.db.WithContext(ctx).
		Where("match_id = ? AND round_number = ?", matchID, roundNumber).
		First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("回合不存在")
		}
		return nil, err
	}
	return &round, nil
}

// FindCurrent 查找当前回合
func (r *gameRoundRepo) FindCurrent(ctx context.Context, matchID uint) (*models.GameRound, error) {
	var round models.GameRound
	err := r.db.WithContext(ctx).
		Where("match_id = ? AND status <> ?", matchID, models.RoundStatusCompleted).
		Order("round_number DESC").
		First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &round, nil
}

// ListByMatch 列出比赛的所有回合
func (r *gameRoundRepo) ListByMatch(ctx context.Context, matchID uint) ([]*models.GameRound, error) {
	var rounds []*models.GameRound
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("round_number ASC").
		Find(&rounds).Error
	return rounds, err
}

// SetMove 记录出招
func (r *gameRoundRepo) SetMove(ctx context.Context, roundID uint, position int, move string) (bool, error) {
	var column string
	switch position {
	case models.MatchPositionPlayer1:
		column = "player1_move"
	case models.MatchPositionPlayer2:
		column = "player2_move"
	default:
		return false, fmt.Errorf("无效的座位号: %d", position)
	}

	result := r.db.WithContext(ctx).
		Model(&models.GameRound{}).
		Where(fmt.Sprintf("id = ? AND status = ? AND %s IS NULL", column),
			roundID, models.RoundStatusAwaitingMoves).
		Update(column, move)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// BeginEvaluation 声明回合结算权
func (r *gameRoundRepo) BeginEvaluation(ctx context.Context, roundID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GameRound{}).
		Where("id = ? AND status = ?", roundID, models.RoundStatusAwaitingMoves).
		Update("status", models.RoundStatusEvaluating)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Complete 完成回合并记录胜者（平局为nil）
func (r *gameRoundRepo) Complete(ctx context.Context, roundID uint, winnerID *uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.GameRound{}).
		Where("id = ?", roundID).
		Updates(map[string]interface{}{
			"status":       models.RoundStatusCompleted,
			"winner_id":    winnerID,
			"completed_at": now,
		}).Error
}

// CountWins 统计玩家在比赛中的胜利回合数
func (r *gameRoundRepo) CountWins(ctx context.Context, matchID, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameRound{}).
		Where("match_id = ? AND winner_id = ? AND status = ?", matchID, userID, models.RoundStatusCompleted).
		Count(&count).Error
	return count, err
}

// CountCompleted 统计比赛已完成的回合数
func (r *gameRoundRepo) CountCompleted(ctx context.Context, matchID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameRound{}).
		Where("match_id = ? AND status = ?", matchID, models.RoundStatusCompleted).
		Count(&count).Error
	return count, err
}

// WithTx 使用事务
func (r *gameRoundRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRoundRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
