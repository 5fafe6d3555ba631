package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerFiresCallback(t *testing.T) {
	s := NewTimerService()
	defer s.Stop()

	fired := make(chan struct{})
	s.Arm("round:1", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("定时器未触发")
	}
}

func TestTimerCancelPreventsCallback(t *testing.T) {
	s := NewTimerService()
	defer s.Stop()

	fired := make(chan struct{}, 1)
	s.Arm("round:2", 30*time.Millisecond, func() { fired <- struct{}{} })
	s.Cancel("round:2")

	// 未知键的取消是空操作
	s.Cancel("round:999")

	select {
	case <-fired:
		t.Fatal("已取消的定时器不应触发")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimerArmReplacesExisting(t *testing.T) {
	s := NewTimerService()
	defer s.Stop()

	result := make(chan string, 2)
	s.Arm("round:3", 20*time.Millisecond, func() { result <- "第一次" })
	s.Arm("round:3", 40*time.Millisecond, func() { result <- "第二次" })

	select {
	case got := <-result:
		assert.Equal(t, "第二次", got)
	case <-time.After(time.Second):
		t.Fatal("定时器未触发")
	}

	// 被替换的定时器不再触发
	select {
	case <-result:
		t.Fatal("旧定时器不应触发")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerStopCancelsAll(t *testing.T) {
	s := NewTimerService()

	fired := make(chan struct{}, 2)
	s.Arm("round:4", 20*time.Millisecond, func() { fired <- struct{}{} })
	s.Arm("match:4", 20*time.Millisecond, func() { fired <- struct{}{} })
	s.Stop()

	// 停止后新设的定时器被忽略
	s.Arm("round:5", 10*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
		t.Fatal("停止后定时器不应触发")
	case <-time.After(60 * time.Millisecond):
	}
}
