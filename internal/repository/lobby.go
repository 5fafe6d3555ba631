package repository

import (
	"context"
	"errors"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"gorm.io/gorm"
)

// LobbyRepository 大厅仓储接口
type LobbyRepository interface {
	BaseRepository
	Create(ctx context.Context, lobby *models.Lobby) error
	Update(ctx context.Context, lobby *models.Lobby) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Lobby, error)
	FindByIDWithParticipants(ctx context.Context, id uint) (*models.Lobby, error)
	List(ctx context.Context, status string, pagination *Pagination) ([]*models.Lobby, error)
	// TransitionStatus 条件更新大厅状态，仅当当前状态等于from时生效。
	// 返回是否实际发生了状态迁移，这是大厅转换为对局的唯一授权点。
	TransitionStatus(ctx context.Context, lobbyID uint, from, to string) (bool, error)
	// ReserveSeat 条件占座：仅当大厅仍在等待且未满时人数加一。
	// 返回是否抢到席位，并发争抢最后一个名额时只有一方能成功。
	ReserveSeat(ctx context.Context, lobbyID uint) (bool, error)
	UpdateCurrentPlayers(ctx context.Context, lobbyID uint, delta int) error
	FindActiveByCreator(ctx context.Context, creatorID uint) (*models.Lobby, error)
}

// lobbyRepo 大厅仓储实现
type lobbyRepo struct {
	*BaseRepo
}

// NewLobbyRepository 创建大厅仓储
func NewLobbyRepository(db *gorm.DB) LobbyRepository {
	return &lobbyRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建大厅
func (r *lobbyRepo) Create(ctx context.Context, lobby *models.Lobby) error {
	return r.db.WithContext(ctx).Create(lobby).Error
}

// Update 更新大厅
func (r *lobbyRepo) Update(ctx context.Context, lobby *models.Lobby) error {
	return r.db.WithContext(ctx).Save(lobby).Error
}

// Delete 删除大厅（软删除）
func (r *lobbyRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Lobby{}, id).Error
}

// FindByID 根据ID查找大厅
func (r *lobbyRepo) FindByID(ctx context.Context, id uint) (*models.Lobby, error) {
	var lobby models.Lobby
	err := r.db.WithContext(ctx).First(&lobby, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("大厅不存在")
		}
		return nil, err
	}
	return &lobby, nil
}

// FindByIDWithParticipants 根据ID查找大厅并预加载参与者
func (r *lobbyRepo) FindByIDWithParticipants(ctx context.Context, id uint) (*models.Lobby, error) {
	var lobby models.Lobby
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		First(&lobby, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("大厅不存在")
		}
		return nil, err
	}
	return &lobby, nil
}

// List 按状态列出大厅（分页）
func (r *lobbyRepo) List(ctx context.Context, status string, pagination *Pagination) ([]*models.Lobby, error) {
	var lobbies []*models.Lobby
	query := r.db.WithContext(ctx).Model(&models.Lobby{})
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
		Find(&lobbies).Error

	return lobbies, err
}

// TransitionStatus 条件更新大厅状态
func (r *lobbyRepo) TransitionStatus(ctx context.Context, lobbyID uint, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Lobby{}).
		Where("id = ? AND status = ?", lobbyID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReserveSeat 条件占座
func (r *lobbyRepo) ReserveSeat(ctx context.Context, lobbyID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Lobby{}).
		Where("id = ? AND status = ? AND current_players < max_players", lobbyID, models.LobbyStatusWaiting).
		Update("current_players", gorm.Expr("current_players + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateCurrentPlayers 调整大厅人数计数（仅用于释放席位的减一）
func (r *lobbyRepo) UpdateCurrentPlayers(ctx context.Context, lobbyID uint, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Lobby{}).
		Where("id = ?", lobbyID).
		Update("current_players", gorm.Expr("current_players + ?", delta)).Error
}

// FindActiveByCreator 查找创建者当前开放的大厅
func (r *lobbyRepo) FindActiveByCreator(ctx context.Context, creatorID uint) (*models.Lobby, error) {
	var lobby models.Lobby
	err := r.db.WithContext(ctx).
		Where("creator_id = ? AND status IN ?", creatorID,
			[]string{models.LobbyStatusWaiting, models.LobbyStatusReady, models.LobbyStatusStarting}).
		First(&lobby).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lobby, nil
}

// WithTx 使用事务
func (r *lobbyRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &lobbyRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// LobbyParticipantRepository 大厅参与者仓储接口
type LobbyParticipantRepository interface {
	BaseRepository
	Add(ctx context.Context, participant *models.LobbyParticipant) error
	Find(ctx context.Context, lobbyID, userID uint) (*models.LobbyParticipant, error)
	ListByLobby(ctx context.Context, lobbyID uint) ([]*models.LobbyParticipant, error)
	// DeleteIfUnstaked 仅当参与者尚未质押时将其移出大厅。
	// 返回是否实际删除：质押先落库则踢出失败，保证质押赢得竞态。
	DeleteIfUnstaked(ctx context.Context, lobbyID, userID uint) (bool, error)
	// DeleteIfLobbyWaiting 仅当大厅仍在等待状态时将参与者移出。
	// 撤出与转换竞争时以先落库者为准：转换先赢得waiting→starting则撤出失败。
	DeleteIfLobbyWaiting(ctx context.Context, lobbyID, userID uint) (bool, error)
	SetReady(ctx context.Context, lobbyID, userID uint, ready bool) error
	// MarkStaked 仅当参与者尚未质押时记录质押，保证幂等。
	MarkStaked(ctx context.Context, lobbyID, userID uint, txHash string) (bool, error)
	CountStaked(ctx context.Context, lobbyID uint) (int64, error)
	FindActiveByUser(ctx context.Context, userID uint) (*models.LobbyParticipant, error)
}

// lobbyParticipantRepo 大厅参与者仓储实现
type lobbyParticipantRepo struct {
	*BaseRepo
}

// NewLobbyParticipantRepository 创建大厅参与者仓储
func NewLobbyParticipantRepository(db *gorm.DB) LobbyParticipantRepository {
	return &lobbyParticipantRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Add 加入大厅
func (r *lobbyParticipantRepo) Add(ctx context.Context, participant *models.LobbyParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

// Find 查找大厅参与者
func (r *lobbyParticipantRepo) Find(ctx context.Context, lobbyID, userID uint) (*models.LobbyParticipant, error) {
	var participant models.LobbyParticipant
	err := r.db.WithContext(ctx).
		Where("lobby_id = ? AND user_id = ?", lobbyID, userID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("玩家不在该大厅中")
		}
		return nil, err
	}
	return &participant, nil
}

// ListByLobby 列出大厅的所有参与者
func (r *lobbyParticipantRepo) ListByLobby(ctx context.Context, lobbyID uint) ([]*models.LobbyParticipant, error) {
	var participants []*models.LobbyParticipant
	err := r.db.WithContext(ctx).
		Where("lobby_id = ?", lobbyID).
		Order("created_at ASC").
		Find(&participants).Error
	return participants, err
}

// DeleteIfUnstaked 仅当未质押时移出
func (r *lobbyParticipantRepo) DeleteIfUnstaked(ctx context.Context, lobbyID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("lobby_id = ? AND user_id = ? AND has_staked = ?", lobbyID, userID, false).
		Delete(&models.LobbyParticipant{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteIfLobbyWaiting 仅当大厅仍在等待时移出，与转换的状态迁移在同一条语句里判定
func (r *lobbyParticipantRepo) DeleteIfLobbyWaiting(ctx context.Context, lobbyID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("lobby_id = ? AND user_id = ? AND (SELECT status FROM lobbies WHERE lobbies.id = ?) = ?",
			lobbyID, userID, lobbyID, models.LobbyStatusWaiting).
		Delete(&models.LobbyParticipant{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetReady 更新就绪标记
func (r *lobbyParticipantRepo) SetReady(ctx context.Context, lobbyID, userID uint, ready bool) error {
	return r.db.WithContext(ctx).
		Model(&models.LobbyParticipant{}).
		Where("lobby_id = ? AND user_id = ?", lobbyID, userID).
		Update("is_ready", ready).Error
}

// MarkStaked 记录质押（幂等）
func (r *lobbyParticipantRepo) MarkStaked(ctx context.Context, lobbyID, userID uint, txHash string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.LobbyParticipant{}).
		Where("lobby_id = ? AND user_id = ? AND has_staked = ?", lobbyID, userID, false).
		Updates(map[string]interface{}{
			"has_staked":             true,
			"stake_transaction_hash": txHash,
			"staked_at":              now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountStaked 统计已质押人数
func (r *lobbyParticipantRepo) CountStaked(ctx context.Context, lobbyID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LobbyParticipant{}).
		Where("lobby_id = ? AND has_staked = ?", lobbyID, true).
		Count(&count).Error
	return count, err
}

// FindActiveByUser 查找玩家当前所在的开放大厅
func (r *lobbyParticipantRepo) FindActiveByUser(ctx context.Context, userID uint) (*models.LobbyParticipant, error) {
	var participant models.LobbyParticipant
	err := r.db.WithContext(ctx).
		Joins("JOIN lobbies ON lobbies.id = lobby_participants.lobby_id").
		Where("lobby_participants.user_id = ? AND lobbies.status IN ? AND lobbies.deleted_at IS NULL", userID,
			[]string{models.LobbyStatusWaiting, models.LobbyStatusReady, models.LobbyStatusStarting}).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &participant, nil
}

// WithTx 使用事务
func (r *lobbyParticipantRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &lobbyParticipantRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
