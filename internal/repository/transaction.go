package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// BeginWithOptions 使用选项开始事务
	BeginWithOptions(ctx context.Context, opts *TxOptions) (*Transaction, error)
	// WithTransaction 在事务中执行函数
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
	// WithTransactionOptions 使用选项在事务中执行函数
	WithTransactionOptions(ctx context.Context, opts *TxOptions, fn func(tx *Transaction) error) error
}

// TxOptions 事务选项
type TxOptions struct {
	// IsolationLevel 事务隔离级别
	IsolationLevel string
	// ReadOnly 是否只读事务
	ReadOnly bool
	// Timeout 事务超时时间（秒）
	Timeout int
}

// Transaction 事务包装器，提供事务内的仓储访问
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	// 事务中的仓储实例
	user              UserRepository
	lobby             LobbyRepository
	lobbyParticipant  LobbyParticipantRepository
	match             MatchRepository
	matchParticipant  MatchParticipantRepository
	gameRound         GameRoundRepository
	tournament        TournamentRepository
	tournamentMember  TournamentParticipantRepository
	stakeTransaction  StakeTransactionRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	return m.BeginWithOptions(ctx, nil)
}

// BeginWithOptions 使用选项开始事务
func (m *txManager) BeginWithOptions(ctx context.Context, opts *TxOptions) (*Transaction, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	// SQLite不支持SET TRANSACTION，隔离级别选项仅在MySQL/PostgreSQL下生效
	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions 使用选项在事务中执行函数
func (m *txManager) WithTransactionOptions(ctx context.Context, opts *TxOptions, fn func(tx *Transaction) error) error {
	tx, err := m.BeginWithOptions(ctx, opts)
	if err != nil {
		return err
	}

	// 确保事务被处理
	defer func() {
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return err
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Rollback().Error; err != nil {
		return err
	}

	t.rolledback = true
	return nil
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// User 获取事务中的玩家仓储
func (t *Transaction) User() UserRepository {
	if t.user == nil {
		t.user = &userRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.user
}

// Lobby 获取事务中的大厅仓储
func (t *Transaction) Lobby() LobbyRepository {
	if t.lobby == nil {
		t.lobby = &lobbyRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.lobby
}

// LobbyParticipant 获取事务中的大厅参与者仓储
func (t *Transaction) LobbyParticipant() LobbyParticipantRepository {
	if t.lobbyParticipant == nil {
		t.lobbyParticipant = &lobbyParticipantRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.lobbyParticipant
}

// Match 获取事务中的比赛仓储
func (t *Transaction) Match() MatchRepository {
	if t.match == nil {
		t.match = &matchRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.match
}

// MatchParticipant 获取事务中的比赛参与者仓储
func (t *Transaction) MatchParticipant() MatchParticipantRepository {
	if t.matchParticipant == nil {
		t.matchParticipant = &matchParticipantRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.matchParticipant
}

// GameRound 获取事务中的对局回合仓储
func (t *Transaction) GameRound() GameRoundRepository {
	if t.gameRound == nil {
		t.gameRound = &gameRoundRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.gameRound
}

// Tournament 获取事务中的锦标赛仓储
func (t *Transaction) Tournament() TournamentRepository {
	if t.tournament == nil {
		t.tournament = &tournamentRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.tournament
}

// TournamentParticipant 获取事务中的锦标赛参与者仓储
func (t *Transaction) TournamentParticipant() TournamentParticipantRepository {
	if t.tournamentMember == nil {
		t.tournamentMember = &tournamentParticipantRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.tournamentMember
}

// StakeTransaction 获取事务中的链上账务仓储
func (t *Transaction) StakeTransaction() StakeTransactionRepository {
	if t.stakeTransaction == nil {
		t.stakeTransaction = &stakeTransactionRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.stakeTransaction
}

// SavePoint 创建保存点
func (t *Transaction) SavePoint(name string) error {
	return t.tx.SavePoint(name).Error
}

// RollbackToSavePoint 回滚到保存点
func (t *Transaction) RollbackToSavePoint(name string) error {
	return t.tx.RollbackTo(name).Error
}
