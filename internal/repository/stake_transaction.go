package repository

import (
	"context"
	"errors"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"gorm.io/gorm"
)

// StakeTransactionRepository 链上账务仓储接口
type StakeTransactionRepository interface {
	BaseRepository
	Create(ctx context.Context, tx *models.StakeTransaction) error
	Update(ctx context.Context, tx *models.StakeTransaction) error
	FindByID(ctx context.Context, id uint) (*models.StakeTransaction, error)
	FindByOrderNo(ctx context.Context, orderNo string) (*models.StakeTransaction, error)
	FindByTxHash(ctx context.Context, txHash string) (*models.StakeTransaction, error)
	ListByUser(ctx context.Context, userID uint, pagination *Pagination) ([]*models.StakeTransaction, error)
	ListByLobby(ctx context.Context, lobbyID uint) ([]*models.StakeTransaction, error)
	ListPending(ctx context.Context, txType string) ([]*models.StakeTransaction, error)
	MarkConfirmed(ctx context.Context, id uint, txHash string) error
	MarkFailed(ctx context.Context, id uint, reason string) error
}

// stakeTransactionRepo 链上账务仓储实现
type stakeTransactionRepo struct {
	*BaseRepo
}

// NewStakeTransactionRepository 创建链上账务仓储
func NewStakeTransactionRepository(db *gorm.DB) StakeTransactionRepository {
	return &stakeTransactionRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建账务记录
func (r *stakeTransactionRepo) Create(ctx context.Context, tx *models.StakeTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// Update 更新账务记录
func (r *stakeTransactionRepo) Update(ctx context.Context, tx *models.StakeTransaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

// FindByID 根据ID查找账务记录
func (r *stakeTransactionRepo) FindByID(ctx context.Context, id uint) (*models.StakeTransaction, error) {
	var tx models.StakeTransaction
	err := r.db.WithContext(ctx).First(&tx, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("账务记录不存在")
		}
		return nil, err
	}
	return &tx, nil
}

// FindByOrderNo 根据订单号查找
func (r *stakeTransactionRepo) FindByOrderNo(ctx context.Context, orderNo string) (*models.StakeTransaction, error) {
	var tx models.StakeTransaction
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("账务记录不存在")
		}
		return nil, err
	}
	return &tx, nil
}

// FindByTxHash 根据链上交易哈希查找
func (r *stakeTransactionRepo) FindByTxHash(ctx context.Context, txHash string) (*models.StakeTransaction, error) {
	var tx models.StakeTransaction
	err := r.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("账务记录不存在")
		}
		return nil, err
	}
	return &tx, nil
}

// ListByUser 列出玩家的账务记录（分页）
func (r *stakeTransactionRepo) ListByUser(ctx context.Context, userID uint, pagination *Pagination) ([]*models.StakeTransaction, error) {
	var txs []*models.StakeTransaction
	query := r.db.WithContext(ctx).
		Model(&models.StakeTransaction{}).
		Where("user_id = ?", userID)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&txs).Error

	return txs, err
}

// ListByLobby 列出大厅关联的账务记录
func (r *stakeTransactionRepo) ListByLobby(ctx context.Context, lobbyID uint) ([]*models.StakeTransaction, error) {
	var txs []*models.StakeTransaction
	err := r.db.WithContext(ctx).
		Where("lobby_id = ?", lobbyID).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}

// ListPending 列出待确认的账务记录
func (r *stakeTransactionRepo) ListPending(ctx context.Context, txType string) ([]*models.StakeTransaction, error) {
	var txs []*models.StakeTransaction
	query := r.db.WithContext(ctx).
		Where("status = ?", models.StakeTxStatusPending)
	if txType != "" {
		query = query.Where("type = ?", txType)
	}
	err := query.Order("created_at ASC").Find(&txs).Error
	return txs, err
}

// MarkConfirmed 标记账务记录为已确认
func (r *stakeTransactionRepo) MarkConfirmed(ctx context.Context, id uint, txHash string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.StakeTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.StakeTxStatusConfirmed,
			"tx_hash":      txHash,
			"confirmed_at": now,
		}).Error
}

// MarkFailed 标记账务记录为失败
func (r *stakeTransactionRepo) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.StakeTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.StakeTxStatusFailed,
			"fail_reason": reason,
		}).Error
}

// WithTx 使用事务
func (r *stakeTransactionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &stakeTransactionRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
