package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/degen-space-organization/solana-game-sub000/internal/game"
	"github.com/degen-space-organization/solana-game-sub000/internal/models"
	"github.com/degen-space-organization/solana-game-sub000/internal/repository"
)

// addClient 直接注册一个不带底层连接的客户端，只用于消费Send通道
func addClient(h *Hub, userID uint) *Client {
	client := NewClient(h, nil, userID)
	h.registerClient(client)
	// 丢弃连接成功消息
	<-client.Send
	return client
}

// recvMessage 从客户端发送通道读取一条消息
func recvMessage(t *testing.T, client *Client) *Message {
	t.Helper()
	select {
	case data := <-client.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("未收到消息")
		return nil
	}
}

func TestValidChannel(t *testing.T) {
	assert.True(t, validChannel("match:12"))
	assert.True(t, validChannel("tournament:3"))
	assert.False(t, validChannel("match:"))
	assert.False(t, validChannel("lobby:5"))
	assert.False(t, validChannel("session-abc"))
	assert.False(t, validChannel(""))
}

func TestSendToChannelOnlyReachesSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	subscriber := addClient(hub, 1)
	bystander := addClient(hub, 2)

	subscriber.subscribe("match:7")
	hub.SendToChannel("match:7", &Message{Type: MessageTypeMatchUpdate, Timestamp: time.Now().Unix()})

	msg := recvMessage(t, subscriber)
	assert.Equal(t, MessageTypeMatchUpdate, msg.Type)
	assert.Equal(t, "match:7", msg.Channel)
	assert.Empty(t, bystander.Send)

	// 取消订阅后不再收到
	subscriber.unsubscribe("match:7")
	hub.SendToChannel("match:7", &Message{Type: MessageTypeMatchUpdate, Timestamp: time.Now().Unix()})
	assert.Empty(t, subscriber.Send)
}

func TestSendToUserReachesAllClientsOfUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	first := addClient(hub, 5)
	second := addClient(hub, 5)
	other := addClient(hub, 6)

	err := hub.SendToUser(5, &Message{Type: MessageTypeStakeUpdate, Timestamp: time.Now().Unix()})
	require.NoError(t, err)

	assert.Equal(t, MessageTypeStakeUpdate, recvMessage(t, first).Type)
	assert.Equal(t, MessageTypeStakeUpdate, recvMessage(t, second).Type)
	assert.Empty(t, other.Send)

	err = hub.SendToUser(999, &Message{Type: MessageTypeStakeUpdate})
	assert.ErrorIs(t, err, ErrUserNotConnected)
}

func TestBridgeRoutesEngineEvents(t *testing.T) {
	db := repository.SetupTestDB()
	repos := repository.NewManager(db)
	bus := game.NewEventBus()
	hub := NewHub(zap.NewNop())
	bridge := NewEventBridge(hub, bus, repos, zap.NewNop())
	defer bridge.Close()

	watcher := addClient(hub, 1)
	watcher.subscribe("match:3")
	staker := addClient(hub, 9)

	// 回合事件带载荷时直接按MatchID路由，不查库
	round := &models.GameRound{MatchID: 3, RoundNumber: 1}
	bus.Publish(game.EventRound, 42, game.ChangeCreated, round)

	msg := recvMessage(t, watcher)
	assert.Equal(t, MessageTypeRoundUpdate, msg.Type)
	assert.Equal(t, "match:3", msg.Channel)

	var payload eventPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, game.EventRound, payload.EntityType)
	assert.Equal(t, uint(42), payload.EntityID)
	assert.Equal(t, game.ChangeCreated, payload.Change)

	// 结算事件定向推给玩家本人
	record := &models.StakeTransaction{UserID: 9, Type: models.StakeTxTypePayout}
	bus.Publish(game.EventStake, 7, game.ChangeUpdated, record)

	msg = recvMessage(t, staker)
	assert.Equal(t, MessageTypeStakeUpdate, msg.Type)
	assert.Empty(t, watcher.Send)
}

func TestBridgeForwardsTournamentMatchEvents(t *testing.T) {
	db := repository.SetupTestDB()
	repos := repository.NewManager(db)
	bus := game.NewEventBus()
	hub := NewHub(zap.NewNop())
	bridge := NewEventBridge(hub, bus, repos, zap.NewNop())
	defer bridge.Close()

	tournamentID := uint(11)
	watcher := addClient(hub, 1)
	watcher.subscribe("tournament:11")

	match := &models.Match{
		StakeAmount:  1000,
		TournamentID: &tournamentID,
		Status:       models.MatchStatusInProgress,
	}
	require.NoError(t, db.Create(match).Error)

	// 载荷为空时回查比赛归属
	bus.Publish(game.EventMatch, match.ID, game.ChangeUpdated, nil)

	msg := recvMessage(t, watcher)
	assert.Equal(t, MessageTypeMatchUpdate, msg.Type)
	assert.Equal(t, "tournament:11", msg.Channel)
}
