package repository

import (
	"context"
	"errors"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"gorm.io/gorm"
)

// TournamentRepository 锦标赛仓储接口
type TournamentRepository interface {
	BaseRepository
	Create(ctx context.Context, tournament *models.Tournament) error
	Update(ctx context.Context, tournament *models.Tournament) error
	FindByID(ctx context.Context, id uint) (*models.Tournament, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Tournament, error)
	List(ctx context.Context, status string, pagination *Pagination) ([]*models.Tournament, error)
	// TransitionStatus 条件更新锦标赛状态，仅当当前状态等于from时生效
	TransitionStatus(ctx context.Context, tournamentID uint, from, to string) (bool, error)
}

// tournamentRepo 锦标赛仓储实现
type tournamentRepo struct {
	*BaseRepo
}

// NewTournamentRepository 创建锦标赛仓储
func NewTournamentRepository(db *gorm.DB) TournamentRepository {
	return &tournamentRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建锦标赛
func (r *tournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	return r.db.WithContext(ctx).Create(tournament).Error
}

// Update 更新锦标赛
func (r *tournamentRepo) Update(ctx context.Context, tournament *models.Tournament) error {
	return r.db.WithContext(ctx).Save(tournament).Error
}

// FindByID 根据ID查找锦标赛
func (r *tournamentRepo) FindByID(ctx context.Context, id uint) (*models.Tournament, error) {
	var tournament models.Tournament
	err := r.db.WithContext(ctx).First(&tournament, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("锦标赛不存在")
		}
		return nil, err
	}
	return &tournament, nil
}

// FindByIDWithDetails 根据ID查找锦标赛并预加载参与者与比赛
func (r *tournamentRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Tournament, error) {
	var tournament models.Tournament
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Preload("Matches", func(db *gorm.DB) *gorm.DB {
			return db.Order("tournament_round ASC, id ASC")
		}).
		First(&tournament, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("锦标赛不存在")
		}
		return nil, err
	}
	return &tournament, nil
}

// List 按状态列出锦标赛（分页）
func (r *tournamentRepo) List(ctx context.Context, status string, pagination *Pagination) ([]*models.Tournament, error) {
	var tournaments []*models.Tournament
	query := r.db.WithContext(ctx).Model(&models.Tournament{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&tournaments).Error

	return tournaments, err
}

// TransitionStatus 条件更新锦标赛状态
func (r *tournamentRepo) TransitionStatus(ctx context.Context, tournamentID uint, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("id = ? AND status = ?", tournamentID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// WithTx 使用事务
func (r *tournamentRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &tournamentRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// TournamentParticipantRepository 锦标赛参与者仓储接口
type TournamentParticipantRepository interface {
	BaseRepository
	Add(ctx context.Context, participant *models.TournamentParticipant) error
	Find(ctx context.Context, tournamentID, userID uint) (*models.TournamentParticipant, error)
	ListByTournament(ctx context.Context, tournamentID uint) ([]*models.TournamentParticipant, error)
	// Eliminate 记录玩家被淘汰的时间与最终名次
	Eliminate(ctx context.Context, tournamentID, userID uint, finalPosition int) error
	SetFinalPosition(ctx context.Context, tournamentID, userID uint, finalPosition int) error
	CountRemaining(ctx context.Context, tournamentID uint) (int64, error)
	// HasActiveTournament 检查玩家是否身处未结束的锦标赛（全局唯一活跃对局约束）
	HasActiveTournament(ctx context.Context, userID uint) (bool, error)
}

// tournamentParticipantRepo 锦标赛参与者仓储实现
type tournamentParticipantRepo struct {
	*BaseRepo
}

// NewTournamentParticipantRepository 创建锦标赛参与者仓储
func NewTournamentParticipantRepository(db *gorm.DB) TournamentParticipantRepository {
	return &tournamentParticipantRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Add 加入锦标赛
func (r *tournamentParticipantRepo) Add(ctx context.Context, participant *models.TournamentParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

// Find 查找锦标赛参与者
func (r *tournamentParticipantRepo) Find(ctx context.Context, tournamentID, userID uint) (*models.TournamentParticipant, error) {
	var participant models.TournamentParticipant
	err := r.db.WithContext(ctx).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("玩家不是该锦标赛的参与者")
		}
		return nil, err
	}
	return &participant, nil
}

// ListByTournament 列出锦标赛的参与者（按加入顺序）
func (r *tournamentParticipantRepo) ListByTournament(ctx context.Context, tournamentID uint) ([]*models.TournamentParticipant, error) {
	var participants []*models.TournamentParticipant
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("join_order ASC").
		Find(&participants).Error
	return participants, err
}

// Eliminate 记录淘汰
func (r *tournamentParticipantRepo) Eliminate(ctx context.Context, tournamentID, userID uint, finalPosition int) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Updates(map[string]interface{}{
			"eliminated_at":  now,
			"final_position": finalPosition,
		}).Error
}

// SetFinalPosition 记录最终名次（冠亚军等未被淘汰的名次）
func (r *tournamentParticipantRepo) SetFinalPosition(ctx context.Context, tournamentID, userID uint, finalPosition int) error {
	return r.db.WithContext(ctx).
		Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Update("final_position", finalPosition).Error
}

// CountRemaining 统计未被淘汰的参与者数量
func (r *tournamentParticipantRepo) CountRemaining(ctx context.Context, tournamentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND eliminated_at IS NULL", tournamentID).
		Count(&count).Error
	return count, err
}

// HasActiveTournament 检查玩家是否身处未结束的锦标赛
func (r *tournamentParticipantRepo) HasActiveTournament(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TournamentParticipant{}).
		Joins("JOIN tournaments ON tournaments.id = tournament_participants.tournament_id").
		Where("tournament_participants.user_id = ? AND tournaments.status IN ? AND tournaments.deleted_at IS NULL", userID,
			[]string{models.TournamentStatusWaiting, models.TournamentStatusInProgress}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// WithTx 使用事务
func (r *tournamentParticipantRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &tournamentParticipantRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
