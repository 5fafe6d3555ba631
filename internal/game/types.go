package game

import (
	apperrors "github.com/degen-space-organization/solana-game-sub000/internal/errors"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
)

// Move 出招
type Move string

const (
	MoveRock     Move = "rock"
	MovePaper    Move = "paper"
	MoveScissors Move = "scissors"
)

// beats 克制关系：石头胜剪刀，剪刀胜布，布胜石头
var beats = map[Move]Move{
	MoveRock:     MoveScissors,
	MoveScissors: MovePaper,
	MovePaper:    MoveRock,
}

// ParseMove 解析出招字符串
func ParseMove(s string) (Move, error) {
	m := Move(s)
	if _, ok := beats[m]; !ok {
		return "", apperrors.New(apperrors.ErrInvalidMove, s)
	}
	return m, nil
}

// Beats 判断是否克制对方出招
func (m Move) Beats(other Move) bool {
	return beats[m] == other
}

// 回合结果
const (
	OutcomeTie     = 0 // 平局
	OutcomePlayer1 = 1 // 1号位获胜
	OutcomePlayer2 = 2 // 2号位获胜
)

// CompareMoves 比较双方出招，缺招视为自动认负，双方缺招为平局
func CompareMoves(player1, player2 *string) int {
	if player1 == nil && player2 == nil {
		return OutcomeTie
	}
	if player1 == nil {
		return OutcomePlayer2
	}
	if player2 == nil {
		return OutcomePlayer1
	}

	m1, m2 := Move(*player1), Move(*player2)
	if m1 == m2 {
		return OutcomeTie
	}
	if m1.Beats(m2) {
		return OutcomePlayer1
	}
	return OutcomePlayer2
}

// GameKind 对局类型
type GameKind string

const (
	GameKindOneOnOne GameKind = "one_on_one" // 单场1v1
	GameKindBracket  GameKind = "bracket"    // 单败淘汰锦标赛
)

// GameContext 大厅转换结果：要么是一场1v1比赛，要么是一个锦标赛
type GameContext struct {
	Kind       GameKind           `json:"kind"`
	Match      *models.Match      `json:"match,omitempty"`      // Kind==one_on_one
	Tournament *models.Tournament `json:"tournament,omitempty"` // Kind==bracket
	Matches    []*models.Match    `json:"matches,omitempty"`    // 锦标赛已创建的比赛
}

// NewOneOnOneContext 构造1v1对局上下文
func NewOneOnOneContext(match *models.Match) *GameContext {
	return &GameContext{Kind: GameKindOneOnOne, Match: match}
}

// NewBracketContext 构造锦标赛对局上下文
func NewBracketContext(tournament *models.Tournament, matches []*models.Match) *GameContext {
	return &GameContext{Kind: GameKindBracket, Tournament: tournament, Matches: matches}
}
