package game

import (
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/config"
)

// Rules 对局规则参数，从配置装载一次后不再变化
type Rules struct {
	RoundTimeout        time.Duration // 每回合出招时限
	ResultsDisplayDelay time.Duration // 结果展示期，结束后才结算
	MaxRounds           int           // 最多回合数
	WinsToTake          int           // 先胜几局获胜
	FeePercent          float64       // 平台抽成（百分比）
	GasBufferLamports   int64         // 每笔发放预留的gas
	PrizeShares         []float64     // 锦标赛名次分成，按名次排列
	MinStakeLamports    int64         // 最低质押额
}

// RulesFromConfig 从配置装载对局规则
func RulesFromConfig(gc config.GameConfig) Rules {
	return Rules{
		RoundTimeout:        gc.RoundTimeout,
		ResultsDisplayDelay: gc.ResultsDisplayDelay,
		MaxRounds:           gc.MaxRounds,
		WinsToTake:          gc.WinsToTake,
		FeePercent:          gc.FeePercent,
		GasBufferLamports:   gc.GasBufferLamports,
		PrizeShares:         gc.PrizeShares,
		MinStakeLamports:    gc.MinStakeLamports,
	}
}

// DefaultRules 默认对局规则（30秒回合、五局三胜、0.5%抽成）
func DefaultRules() Rules {
	return Rules{
		RoundTimeout:        30 * time.Second,
		ResultsDisplayDelay: 15 * time.Second,
		MaxRounds:           5,
		WinsToTake:          3,
		FeePercent:          0.5,
		GasBufferLamports:   500000,
		PrizeShares:         []float64{0.7, 0.3},
		MinStakeLamports:    1000000,
	}
}

// NetPayout 计算扣除抽成与gas后的实际发放额，下限为0
func (r Rules) NetPayout(gross int64) int64 {
	fee := int64(float64(gross) * r.FeePercent / 100)
	net := gross - fee - r.GasBufferLamports
	if net < 0 {
		return 0
	}
	return net
}

// ValidLobbySize 校验大厅人数：1v1为2人，锦标赛为4或8人
func ValidLobbySize(maxPlayers int) bool {
	switch maxPlayers {
	case 2, 4, 8:
		return true
	default:
		return false
	}
}
