package repository

import (
	"context"
	"errors"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"gorm.io/gorm"
)

// UserRepository 玩家仓储接口
type UserRepository interface {
	BaseRepository
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error)
	GetOrCreateByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	GetAll(ctx context.Context, pagination *Pagination) ([]*models.User, error)
	UpdateNickname(ctx context.Context, userID uint, nickname string) error
	RecordMatchResult(ctx context.Context, winnerID, loserID uint) error
	Leaderboard(ctx context.Context, limit int) ([]*models.User, error)
}

// userRepo 玩家仓储实现
type userRepo struct {
	*BaseRepo
}

// NewUserRepository 创建玩家仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建玩家
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update 更新玩家
func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete 删除玩家（软删除）
func (r *userRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

// FindByID 根据ID查找玩家
func (r *userRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("玩家不存在")
		}
		return nil, err
	}
	return &user, nil
}

// FindByWalletAddress 根据钱包地址查找玩家
func (r *userRepo) FindByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("玩家不存在")
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateByWallet 根据钱包地址获取玩家，不存在时创建
func (r *userRepo) GetOrCreateByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where(models.User{WalletAddress: walletAddress}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAll 获取所有玩家（分页）
func (r *userRepo) GetAll(ctx context.Context, pagination *Pagination) ([]*models.User, error) {
	var users []*models.User
	query := r.db.WithContext(ctx).Model(&models.User{})

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&users).Error

	return users, err
}

// UpdateNickname 更新昵称
func (r *userRepo) UpdateNickname(ctx context.Context, userID uint, nickname string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("nickname", nickname).Error
}

// RecordMatchResult 记录一场比赛的胜负（胜者+1胜，败者+1负）
func (r *userRepo) RecordMatchResult(ctx context.Context, winnerID, loserID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", winnerID).
			Update("matches_won", gorm.Expr("matches_won + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", loserID).
			Update("matches_lost", gorm.Expr("matches_lost + 1")).Error
	})
}

// Leaderboard 获取胜场排行榜
func (r *userRepo) Leaderboard(ctx context.Context, limit int) ([]*models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var users []*models.User
	err := r.db.WithContext(ctx).
		Order("matches_won DESC, matches_lost ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// WithTx 使用事务
func (r *userRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &userRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
