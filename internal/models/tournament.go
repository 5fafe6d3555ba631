package models

import "time"

// 锦标赛状态
const (
	TournamentStatusWaiting    = "waiting"
	TournamentStatusInProgress = "in_progress"
	TournamentStatusCompleted  = "completed"
	TournamentStatusCancelled  = "cancelled"
)

// Tournament 单败淘汰锦标赛表
type Tournament struct {
	BaseModel
	Name           string `gorm:"size:100" json:"name"`
	CreatorID      uint   `gorm:"not null;index" json:"creator_id"` // 来源大厅的创建者
	MaxPlayers     int    `gorm:"not null" json:"max_players"`      // 4或8
	CurrentPlayers int    `gorm:"default:0" json:"current_players"`
	PrizePool      int64  `gorm:"default:0" json:"prize_pool"` // lamports
	Status         string `gorm:"size:20;default:'waiting';index" json:"status"`

	Participants []TournamentParticipant `gorm:"foreignKey:TournamentID" json:"participants,omitempty"`
	Matches      []Match                 `gorm:"foreignKey:TournamentID" json:"matches,omitempty"`
}

// IsActive 是否占用玩家的"唯一进行中对局"名额
func (t *Tournament) IsActive() bool {
	return t.Status == TournamentStatusWaiting || t.Status == TournamentStatusInProgress
}

// TotalRounds 满员时的总轮数（4人2轮，8人3轮）
func (t *Tournament) TotalRounds() int {
	rounds := 0
	for n := t.MaxPlayers; n > 1; n /= 2 {
		rounds++
	}
	return rounds
}

// TournamentParticipant 锦标赛参与者表，(tournament, user)唯一
type TournamentParticipant struct {
	BaseModel
	TournamentID  uint       `gorm:"not null;uniqueIndex:idx_tournament_user" json:"tournament_id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_tournament_user;index" json:"user_id"`
	JoinOrder     int        `gorm:"not null" json:"join_order"` // 首轮配对按加入顺序
	EliminatedAt  *time.Time `json:"eliminated_at,omitempty"`
	FinalPosition *int       `json:"final_position,omitempty"` // 赛事结束时写入一次

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
