package models

import "time"

// 比赛状态
const (
	MatchStatusWaiting        = "waiting"         // 已创建，等待双方就位
	MatchStatusInProgress     = "in_progress"     // 回合进行中
	MatchStatusShowingResults = "showing_results" // 结果展示期，尚未结算
	MatchStatusCompleted      = "completed"       // 已结算
)

// 回合状态
const (
	RoundStatusAwaitingMoves = "awaiting_moves"
	RoundStatusEvaluating    = "evaluating"
	RoundStatusCompleted     = "completed"
)

// 参与者位置
const (
	MatchPositionPlayer1 = 1
	MatchPositionPlayer2 = 2
)

// Match 1v1比赛表（五局三胜）
type Match struct {
	BaseModel
	TournamentID     *uint      `gorm:"index" json:"tournament_id,omitempty"`
	TournamentRound  int        `gorm:"default:0" json:"tournament_round"` // 0表示非锦标赛比赛
	Status           string     `gorm:"size:20;default:'waiting';index" json:"status"`
	StakeAmount      int64      `gorm:"not null" json:"stake_amount"` // lamports，单人质押额
	TotalPrizePool   int64      `gorm:"not null" json:"total_prize_pool"`
	WinnerID         *uint      `json:"winner_id,omitempty"` // 总平局时为空
	PrizeDistributed bool       `gorm:"default:false" json:"prize_distributed"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	Participants []MatchParticipant `gorm:"foreignKey:MatchID" json:"participants,omitempty"`
	Rounds       []GameRound        `gorm:"foreignKey:MatchID" json:"rounds,omitempty"`
}

// IsActive 是否占用玩家的"唯一进行中对局"名额。
// 结果展示期比赛尚未结算，名额仍被占用。
func (m *Match) IsActive() bool {
	return m.Status == MatchStatusWaiting ||
		m.Status == MatchStatusInProgress ||
		m.Status == MatchStatusShowingResults
}

// MatchParticipant 比赛参与者表，每场恰好两条，position ∈ {1,2}
type MatchParticipant struct {
	BaseModel
	MatchID  uint `gorm:"not null;uniqueIndex:idx_match_position" json:"match_id"`
	UserID   uint `gorm:"not null;index" json:"user_id"`
	Position int  `gorm:"not null;uniqueIndex:idx_match_position" json:"position"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// GameRound 比赛回合表，round_number从1开始连续无间隙
type GameRound struct {
	BaseModel
	MatchID     uint       `gorm:"not null;uniqueIndex:idx_match_round" json:"match_id"`
	RoundNumber int        `gorm:"not null;uniqueIndex:idx_match_round" json:"round_number"`
	Player1Move *string    `gorm:"size:16" json:"player1_move,omitempty"`
	Player2Move *string    `gorm:"size:16" json:"player2_move,omitempty"`
	WinnerID    *uint      `json:"winner_id,omitempty"` // 平局为空
	Status      string     `gorm:"size:20;default:'awaiting_moves'" json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MoveFor 返回指定位置玩家的出招
func (r *GameRound) MoveFor(position int) *string {
	if position == MatchPositionPlayer1 {
		return r.Player1Move
	}
	return r.Player2Move
}

// BothMovesPresent 双方是否均已出招
func (r *GameRound) BothMovesPresent() bool {
	return r.Player1Move != nil && r.Player2Move != nil
}
