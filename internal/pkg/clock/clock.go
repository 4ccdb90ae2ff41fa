package clock

import (
	"sync"
	"time"
)

// Clock 当前时间来源，测试中替换为 Mock
type Clock interface {
	Now() time.Time
}

// Real 系统时钟，统一返回 UTC
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Mock 可手动推进的时钟
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMock(now time.Time) *Mock {
	return &Mock{now: now.UTC()}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set 设置当前时间
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now.UTC()
}

// Advance 向前推进
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
