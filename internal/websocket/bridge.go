package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
)

// EventBridge 把游戏引擎的事件转发到WebSocket客户端。
//
// 大厅事件全量广播（大厅列表页需要），比赛/锦标赛事件
// 只发给订阅了对应频道的客户端，结算事件定向推给玩家本人。
type EventBridge struct {
	hub    *Hub
	repos  *repository.Manager
	logger *zap.Logger

	unsubs []func()
}

// NewEventBridge 创建事件桥
func NewEventBridge(hub *Hub, bus *game.EventBus, repos *repository.Manager, logger *zap.Logger) *EventBridge {
	b := &EventBridge{
		hub:    hub,
		repos:  repos,
		logger: logger,
	}

	b.unsubs = []func(){
		bus.Subscribe(game.EventLobby, b.onLobbyEvent),
		bus.Subscribe(game.EventMatch, b.onMatchEvent),
		bus.Subscribe(game.EventRound, b.onRoundEvent),
		bus.Subscribe(game.EventTournament, b.onTournamentEvent),
		bus.Subscribe(game.EventStake, b.onStakeEvent),
	}
	return b
}

// Close 取消事件订阅
func (b *EventBridge) Close() {
	for _, unsub := range b.unsubs {
		unsub()
	}
}

// eventPayload 推送给客户端的事件载荷
type eventPayload struct {
	EntityType string `json:"entity_type"`
	EntityID   uint   `json:"entity_id"`
	Change     string `json:"change"`
}

// newMessage 构建推送消息。客户端收到后通过REST接口拉取最新状态。
func newMessage(msgType string, event game.Event) *Message {
	data, _ := json.Marshal(eventPayload{
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Change:     event.Change,
	})
	return &Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// onLobbyEvent 大厅事件：广播给所有客户端
func (b *EventBridge) onLobbyEvent(event game.Event) {
	b.hub.Broadcast(newMessage(MessageTypeLobbyUpdate, event))
}

// onMatchEvent 比赛事件：推给比赛频道，锦标赛比赛同时推给锦标赛频道
func (b *EventBridge) onMatchEvent(event game.Event) {
	b.hub.SendToChannel(matchChannel(event.EntityID), newMessage(MessageTypeMatchUpdate, event))

	match, ok := event.Payload.(*models.Match)
	if !ok {
		var err error
		match, err = b.repos.Match().FindByID(context.Background(), event.EntityID)
		if err != nil {
			b.logger.Warn("比赛事件查询失败",
				zap.Uint("match_id", event.EntityID),
				zap.Error(err))
			return
		}
	}
	if match.TournamentID != nil {
		b.hub.SendToChannel(tournamentChannel(*match.TournamentID), newMessage(MessageTypeMatchUpdate, event))
	}
}

// onRoundEvent 回合事件：推给所属比赛的频道
func (b *EventBridge) onRoundEvent(event game.Event) {
	round, ok := event.Payload.(*models.GameRound)
	if !ok {
		var err error
		round, err = b.repos.GameRound().FindByID(context.Background(), event.EntityID)
		if err != nil {
			b.logger.Warn("回合事件查询失败",
				zap.Uint("round_id", event.EntityID),
				zap.Error(err))
			return
		}
	}
	b.hub.SendToChannel(matchChannel(round.MatchID), newMessage(MessageTypeRoundUpdate, event))
}

// onTournamentEvent 锦标赛事件：推给锦标赛频道
func (b *EventBridge) onTournamentEvent(event game.Event) {
	b.hub.SendToChannel(tournamentChannel(event.EntityID), newMessage(MessageTypeTournamentUpdate, event))
}

// onStakeEvent 结算事件：定向推给玩家本人
func (b *EventBridge) onStakeEvent(event game.Event) {
	record, ok := event.Payload.(*models.StakeTransaction)
	if !ok {
		b.logger.Warn("结算事件缺少载荷", zap.Uint("stake_id", event.EntityID))
		return
	}
	// 玩家不在线时忽略，客户端重连后走REST补拉
	_ = b.hub.SendToUser(record.UserID, newMessage(MessageTypeStakeUpdate, event))
}

func matchChannel(matchID uint) string {
	return fmt.Sprintf("match:%d", matchID)
}

func tournamentChannel(tournamentID uint) string {
	return fmt.Sprintf("tournament:%d", tournamentID)
}
