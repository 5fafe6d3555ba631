package repository

import (
	"context"
	"errors"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"gorm.io/gorm"
)

// MatchRepository 比赛仓储接口
type MatchRepository interface {
	BaseRepository
	Create(ctx context.Context, match *models.Match) error
	Update(ctx context.Context, match *models.Match) error
	FindByID(ctx context.Context, id uint) (*models.Match, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Match, error)
	List(ctx context.Context, status string, pagination *Pagination) ([]*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID uint) ([]*models.Match, error)
	ListByTournamentRound(ctx context.Context, tournamentID uint, round int) ([]*models.Match, error)
	// TransitionStatus 条件更新比赛状态，仅当当前状态等于from时生效
	TransitionStatus(ctx context.Context, matchID uint, from, to string) (bool, error)
	// ClaimPrizeDistribution 声明奖金发放权，保证每场比赛只发放一次
	ClaimPrizeDistribution(ctx context.Context, matchID uint) (bool, error)
	SetWinner(ctx context.Context, matchID uint, winnerID *uint) error
	FindActiveByUser(ctx context.Context, userID uint) (*models.Match, error)
}

// matchRepo 比赛仓储实现
type matchRepo struct {
	*BaseRepo
}

// NewMatchRepository 创建比赛仓储
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建比赛
func (r *matchRepo) Create(ctx context.Context, match *models.Match) error {
	return r.db.WithContext(ctx).Create(match).Error
}

// Update 更新比赛
func (r *matchRepo) Update(ctx context.Context, match *models.Match) error {
	return r.db.WithContext(ctx).Save(match).Error
}

// FindByID 根据ID查找比赛
func (r *matchRepo) FindByID(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).First(&match, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("比赛不存在")
		}
		return nil, err
	}
	return &match, nil
}

// FindByIDWithDetails 根据ID查找比赛并预加载参与者与回合
func (r *matchRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Preload("Rounds", func(db *gorm.DB) *gorm.DB {
			return db.Order("round_number ASC")
		}).
		First(&match, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("比赛不存在")
		}
		return nil, err
	}
	return &match, nil
}

// List 按状态列出比赛（分页）
func (r *matchRepo) List(ctx context.Context, status string, pagination *Pagination) ([]*models.Match, error) {
	var matches []*models.Match
	query := r.db.WithContext(ctx).Model(&models.Match{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Preload("Participants").
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&matches).Error

	return matches, err
}

// ListByTournament 列出锦标赛的所有比赛
func (r *matchRepo) ListByTournament(ctx context.Context, tournamentID uint) ([]*models.Match, error) {
	var matches []*models.Match
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Preload("Participants").
		Order("tournament_round ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

// ListByTournamentRound 列出锦标赛某一轮的比赛
func (r *matchRepo) ListByTournamentRound(ctx context.Context, tournamentID uint, round int) ([]*models.Match, error) {
	var matches []*models.Match
	err := r.db.WithContext(ctx).
		Where("tournament_id = ? AND tournament_round = ?", tournamentID, round).
		Preload("Participants").
		Order("id ASC").
		Find(&matches).Error
	return matches, err
}

// TransitionStatus 条件更新比赛状态
func (r *matchRepo) TransitionStatus(ctx context.Context, matchID uint, from, to string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.MatchStatusInProgress:
		updates["started_at"] = time.Now()
	case models.MatchStatusCompleted:
		updates["completed_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("id = ? AND status = ?", matchID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClaimPrizeDistribution 声明奖金发放权
func (r *matchRepo) ClaimPrizeDistribution(ctx context.Context, matchID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("id = ? AND prize_distributed = ?", matchID, false).
		Update("prize_distributed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetWinner 记录比赛胜者（平局时为nil）
func (r *matchRepo) SetWinner(ctx context.Context, matchID uint, winnerID *uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("id = ?", matchID).
		Update("winner_id", winnerID).Error
}

// FindActiveByUser 查找玩家当前进行中的比赛
func (r *matchRepo) FindActiveByUser(ctx context.Context, userID uint) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).
		Joins("JOIN match_participants ON match_participants.match_id = matches.id").
		Where("match_participants.user_id = ? AND matches.status IN ?", userID,
			[]string{models.MatchStatusWaiting, models.MatchStatusInProgress, models.MatchStatusShowingResults}).
		First(&match).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &match, nil
}

// WithTx 使用事务
func (r *matchRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &matchRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// MatchParticipantRepository 比赛参与者仓储接口
type MatchParticipantRepository interface {
	BaseRepository
	Add(ctx context.Context, participant *models.MatchParticipant) error
	ListByMatch(ctx context.Context, matchID uint) ([]*models.MatchParticipant, error)
	Find(ctx context.Context, matchID, userID uint) (*models.MatchParticipant, error)
	// HasActiveGame 检查玩家是否已有进行中的对局（全局唯一活跃对局约束）
	HasActiveGame(ctx context.Context, userID uint) (bool, error)
}

// matchParticipantRepo 比赛参与者仓储实现
type matchParticipantRepo struct {
	*BaseRepo
}

// NewMatchParticipantRepository 创建比赛参与者仓储
func NewMatchParticipantRepository(db *gorm.DB) MatchParticipantRepository {
	return &matchParticipantRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Add 加入比赛
func (r *matchParticipantRepo) Add(ctx context.Context, participant *models.MatchParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

// ListByMatch 列出比赛的参与者（按座位排序）
func (r *matchParticipantRepo) ListByMatch(ctx context.Context, matchID uint) ([]*models.MatchParticipant, error) {
	var participants []*models.MatchParticipant
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("position ASC").
		Find(&participants).Error
	return participants, err
}

// Find 查找比赛参与者
func (r *matchParticipantRepo) Find(ctx context.Context, matchID, userID uint) (*models.MatchParticipant, error) {
	var participant models.MatchParticipant
	err := r.db.WithContext(ctx).
		Where("match_id = ? AND user_id = ?", matchID, userID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("玩家不是该比赛的参与者")
		}
		return nil, err
	}
	return &participant, nil
}

// HasActiveGame 检查玩家是否已有进行中的对局
func (r *matchParticipantRepo) HasActiveGame(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MatchParticipant{}).
		Joins("JOIN matches ON matches.id = match_participants.match_id").
		Where("match_participants.user_id = ? AND matches.status IN ? AND matches.deleted_at IS NULL", userID,
			[]string{models.MatchStatusWaiting, models.MatchStatusInProgress, models.MatchStatusShowingResults}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// WithTx 使用事务
func (r *matchParticipantRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &matchParticipantRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
