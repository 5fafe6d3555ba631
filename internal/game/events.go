package game

import (
	"sync"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 事件实体类型
const (
	EventLobby      = "lobby"
	EventMatch      = "match"
	EventRound      = "round"
	EventTournament = "tournament"
	EventStake      = "stake"
)

// 事件变更类型
const (
	ChangeCreated   = "created"
	ChangeUpdated   = "updated"
	ChangeConverted = "converted"
	ChangeCompleted = "completed"
	ChangeCancelled = "cancelled"
)

// Event 引擎对外广播的状态变更事件
type Event struct {
	ID         string      `json:"id"`
	EntityType string      `json:"entity_type"`
	EntityID   uint        `json:"entity_id"`
	Change     string      `json:"change"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Subscriber 事件订阅回调。至少一次投递，回调必须幂等。
type Subscriber func(Event)

// EventBus 进程内事件总线
//
// 同步扇出：Publish在所有订阅者返回后才返回，
// 条件更新竞争的失败方通过总线观察到最终状态。
type EventBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Subscriber
	log    *zap.Logger
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[string]map[uint64]Subscriber),
		log:  logger.WithModule("game"),
	}
}

// Subscribe 订阅某一实体类型的事件，返回取消订阅函数
func (b *EventBus) Subscribe(entityType string, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[entityType] == nil {
		b.subs[entityType] = make(map[uint64]Subscriber)
	}
	b.subs[entityType][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[entityType], id)
	}
}

// Publish 发布事件并同步通知所有订阅者
func (b *EventBus) Publish(entityType string, entityID uint, change string, payload interface{}) {
	event := Event{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Change:     change,
		Payload:    payload,
		Timestamp:  time.Now(),
	}

	b.mu.RLock()
	subscribers := make([]Subscriber, 0, len(b.subs[entityType]))
	for _, fn := range b.subs[entityType] {
		subscribers = append(subscribers, fn)
	}
	b.mu.RUnlock()

	b.log.Debug("事件发布",
		zap.String("entity_type", entityType),
		zap.Uint("entity_id", entityID),
		zap.String("change", change),
		zap.Int("subscribers", len(subscribers)),
	)

	for _, fn := range subscribers {
		fn(event)
	}
}
