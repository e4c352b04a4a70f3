package timer

import (
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned cancel is called.
// Cancel must not block, since the timer cancels from inside fn when a
// phase ends.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler drives callbacks from a time.Ticker on its own goroutine.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}

// ManualScheduler fires registered callbacks only when Advance is called.
type ManualScheduler struct {
	mu   sync.Mutex
	fns  map[int]func()
	next int
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{fns: make(map[int]func())}
}

func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	m.fns[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.fns, id)
	}
}

// Advance fires every live registration n times, one interval at a time.
// A callback cancelled by another during the same interval is skipped.
func (m *ManualScheduler) Advance(n int) {
	for range n {
		m.mu.Lock()
		ids := make([]int, 0, len(m.fns))
		for id := range m.fns {
			ids = append(ids, id)
		}
		m.mu.Unlock()

		for _, id := range ids {
			m.mu.Lock()
			fn, ok := m.fns[id]
			m.mu.Unlock()
			if ok {
				fn()
			}
		}
	}
}

// Active reports how many registrations are live.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}
