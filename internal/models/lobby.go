package models

import "time"

// 大厅状态
const (
	LobbyStatusWaiting   = "waiting"   // 等待玩家加入/质押
	LobbyStatusReady     = "ready"     // 人满且全部质押（过渡态，兼容客户端）
	LobbyStatusStarting  = "starting"  // 转换授权点，由条件更新独占
	LobbyStatusClosed    = "closed"    // 已转换为比赛/锦标赛
	LobbyStatusDisbanded = "disbanded" // 创建者解散或取消
)

// Lobby 游戏大厅表，2..N名玩家的赛前质押房间
type Lobby struct {
	BaseModel
	Name           string `gorm:"size:100" json:"name"`
	CreatorID      uint   `gorm:"not null;index" json:"creator_id"`
	StakeAmount    int64  `gorm:"not null" json:"stake_amount"` // lamports
	MaxPlayers     int    `gorm:"not null" json:"max_players"`
	CurrentPlayers int    `gorm:"default:0" json:"current_players"`
	Status         string `gorm:"size:20;default:'waiting';index" json:"status"`
	TournamentID   *uint  `gorm:"index" json:"tournament_id,omitempty"` // 仅当max_players>2时非空

	Participants []LobbyParticipant `gorm:"foreignKey:LobbyID" json:"participants,omitempty"`
}

// IsFull 是否已满员
func (l *Lobby) IsFull() bool {
	return l.CurrentPlayers >= l.MaxPlayers
}

// IsJoinable 是否可加入
func (l *Lobby) IsJoinable() bool {
	return l.Status == LobbyStatusWaiting && !l.IsFull()
}

// IsTournament 是否为锦标赛大厅
func (l *Lobby) IsTournament() bool {
	return l.MaxPlayers > 2
}

// LobbyParticipant 大厅参与记录表，(lobby, user)唯一
type LobbyParticipant struct {
	BaseModel
	LobbyID              uint       `gorm:"not null;uniqueIndex:idx_lobby_user" json:"lobby_id"`
	UserID               uint       `gorm:"not null;uniqueIndex:idx_lobby_user;index" json:"user_id"`
	IsReady              bool       `gorm:"default:false" json:"is_ready"`
	HasStaked            bool       `gorm:"default:false" json:"has_staked"`
	StakeTransactionHash *string    `gorm:"size:128" json:"stake_transaction_hash,omitempty"`
	StakedAt             *time.Time `json:"staked_at,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
