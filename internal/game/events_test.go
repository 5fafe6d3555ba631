package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusPublishToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var lobbyEvents []Event
	bus.Subscribe(EventLobby, func(e Event) {
		lobbyEvents = append(lobbyEvents, e)
	})
	var matchEvents []Event
	bus.Subscribe(EventMatch, func(e Event) {
		matchEvents = append(matchEvents, e)
	})

	bus.Publish(EventLobby, 7, ChangeCreated, nil)
	bus.Publish(EventLobby, 7, ChangeConverted, "payload")
	bus.Publish(EventMatch, 9, ChangeCompleted, nil)

	// 按实体类型路由，发布是同步的
	assert.Len(t, lobbyEvents, 2)
	assert.Len(t, matchEvents, 1)
	assert.Equal(t, uint(7), lobbyEvents[0].EntityID)
	assert.Equal(t, ChangeConverted, lobbyEvents[1].Change)
	assert.Equal(t, "payload", lobbyEvents[1].Payload)
	assert.NotEmpty(t, lobbyEvents[0].ID)
	assert.NotEqual(t, lobbyEvents[0].ID, lobbyEvents[1].ID)
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	count := 0
	unsubscribe := bus.Subscribe(EventRound, func(Event) { count++ })

	bus.Publish(EventRound, 1, ChangeCreated, nil)
	unsubscribe()
	bus.Publish(EventRound, 1, ChangeCompleted, nil)

	assert.Equal(t, 1, count)
}
