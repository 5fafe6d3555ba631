package models

import "time"

// 账务流水类型
const (
	StakeTxTypeStake  = "stake"  // 玩家质押入金库
	StakeTxTypeRefund = "refund" // 质押退回
	StakeTxTypePayout = "payout" // 奖金发放
)

// 账务流水状态
const (
	StakeTxStatusPending   = "pending"
	StakeTxStatusConfirmed = "confirmed"
	StakeTxStatusFailed    = "failed" // 外部依赖失败，等待对账重试
)

// StakeTransaction 链上资金流水表，每笔质押/退款/奖金一条审计记录
type StakeTransaction struct {
	BaseModel
	OrderNo        string     `gorm:"uniqueIndex;size:64;not null" json:"order_no"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	LobbyID        *uint      `gorm:"index" json:"lobby_id,omitempty"`
	MatchID        *uint      `gorm:"index" json:"match_id,omitempty"`
	TournamentID   *uint      `gorm:"index" json:"tournament_id,omitempty"`
	Type           string     `gorm:"size:20;not null;index" json:"type"`
	AmountLamports int64      `gorm:"not null" json:"amount_lamports"`
	TxHash         string     `gorm:"size:128;index" json:"tx_hash"`
	Status         string     `gorm:"size:20;default:'pending';index" json:"status"`
	FailReason     string     `gorm:"size:500" json:"fail_reason,omitempty"`
	Metadata       JSONMap    `gorm:"type:json" json:"metadata,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
}
