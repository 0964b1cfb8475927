package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowLimiter counts requests per client key inside a fixed window.
// Checkout endpoints sit behind it so a misbehaving client cannot hammer
// the payment backend.
type FixedWindowLimiter struct {
	mu      sync.RWMutex
	clients map[string]int
	limit   int
	window  time.Duration
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	rl := &FixedWindowLimiter{
		clients: make(map[string]int),
		limit:   limit,
		window:  window,
	}
	go rl.cleanup()
	return rl
}

func (rl *FixedWindowLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	for range ticker.C {
		rl.mu.Lock()
		rl.clients = make(map[string]int)
		rl.mu.Unlock()
	}
}

func (rl *FixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.RLock()
	count, exists := rl.clients[key]
	rl.mu.RUnlock()

	if !exists || count < rl.limit {
		rl.mu.Lock()
		if !exists {
			go rl.expire(key)
		}
		rl.clients[key]++
		rl.mu.Unlock()
		return true, 0
	}

	return false, rl.window
}

func (rl *FixedWindowLimiter) expire(key string) {
	time.Sleep(rl.window)
	rl.mu.Lock()
	delete(rl.clients, key)
	rl.mu.Unlock()
}
