package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 仓储实例（使用懒加载）
	userOnce sync.Once
	user     UserRepository

	lobbyOnce sync.Once
	lobby     LobbyRepository

	lobbyParticipantOnce sync.Once
	lobbyParticipant     LobbyParticipantRepository

	matchOnce sync.Once
	match     MatchRepository

	matchParticipantOnce sync.Once
	matchParticipant     MatchParticipantRepository

	gameRoundOnce sync.Once
	gameRound     GameRoundRepository

	tournamentOnce sync.Once
	tournament     TournamentRepository

	tournamentMemberOnce sync.Once
	tournamentMember     TournamentParticipantRepository

	stakeTransactionOnce sync.Once
	stakeTransaction     StakeTransactionRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Transaction 获取事务管理器
func (m *Manager) Transaction() TransactionManager {
	return m.txManager
}

// User 获取玩家仓储
func (m *Manager) User() UserRepository {
	m.userOnce.Do(func() {
		m.user = NewUserRepository(m.db)
	})
	return m.user
}

// Lobby 获取大厅仓储
func (m *Manager) Lobby() LobbyRepository {
	m.lobbyOnce.Do(func() {
		m.lobby = NewLobbyRepository(m.db)
	})
	return m.lobby
}

// LobbyParticipant 获取大厅参与者仓储
func (m *Manager) LobbyParticipant() LobbyParticipantRepository {
	m.lobbyParticipantOnce.Do(func() {
		m.lobbyParticipant = NewLobbyParticipantRepository(m.db)
	})
	return m.lobbyParticipant
}

// Match 获取比赛仓储
func (m *Manager) Match() MatchRepository {
	m.matchOnce.Do(func() {
		m.match = NewMatchRepository(m.db)
	})
	return m.match
}

// MatchParticipant 获取比赛参与者仓储
func (m *Manager) MatchParticipant() MatchParticipantRepository {
	m.matchParticipantOnce.Do(func() {
		m.matchParticipant = NewMatchParticipantRepository(m.db)
	})
	return m.matchParticipant
}

// GameRound 获取对局回合仓储
func (m *Manager) GameRound() GameRoundRepository {
	m.gameRoundOnce.Do(func() {
		m.gameRound = NewGameRoundRepository(m.db)
	})
	return m.gameRound
}

// Tournament 获取锦标赛仓储
func (m *Manager) Tournament() TournamentRepository {
	m.tournamentOnce.Do(func() {
		m.tournament = NewTournamentRepository(m.db)
	})
	return m.tournament
}

// TournamentParticipant 获取锦标赛参与者仓储
func (m *Manager) TournamentParticipant() TournamentParticipantRepository {
	m.tournamentMemberOnce.Do(func() {
		m.tournamentMember = NewTournamentParticipantRepository(m.db)
	})
	return m.tournamentMember
}

// StakeTransaction 获取链上账务仓储
func (m *Manager) StakeTransaction() StakeTransactionRepository {
	m.stakeTransactionOnce.Do(func() {
		m.stakeTransaction = NewStakeTransactionRepository(m.db)
	})
	return m.stakeTransaction
}

// WithTransaction 在事务中执行操作
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}

// WithReadOnlyTransaction 在只读事务中执行操作
func (m *Manager) WithReadOnlyTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	opts := &TxOptions{
		ReadOnly: true,
	}
	return m.txManager.WithTransactionOptions(ctx, opts, fn)
}
