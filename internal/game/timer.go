package game

import (
	"sync"
	"time"

	"github.com/degen-space-organization/solana-game-sub000/internal/logger"
	"go.uber.org/zap"
)

// TimerService 回合与结算定时器
//
// 每个键一个time.Timer。重复Arm替换旧定时器；Cancel对未知键是空操作。
// 定时器触发与Cancel之间的竞态由仓储层的结算声明兜底，
// 这里只保证回调最多触发一次。
type TimerService struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	log     *zap.Logger
}

// NewTimerService 创建定时器服务
func NewTimerService() *TimerService {
	return &TimerService{
		timers: make(map[string]*time.Timer),
		log:    logger.WithModule("game"),
	}
}

// Arm 设置定时器，到期时在独立goroutine中执行callback
func (s *TimerService) Arm(key string, d time.Duration, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if old, ok := s.timers[key]; ok {
		old.Stop()
	}

	s.timers[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, key)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		callback()
	})

	s.log.Debug("定时器设置", zap.String("key", key), zap.Duration("after", d))
}

// Cancel 取消定时器，未知键为空操作
func (s *TimerService) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
		s.log.Debug("定时器取消", zap.String("key", key))
	}
}

// Stop 停止服务并取消所有定时器
func (s *TimerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
