package gacha

import (
	"context"
	"sync"
	"time"
)

// SessionManager serializes draws per user inside one process. Two
// concurrent requests from the same user (a double-tap on the draw
// button) race on score and clan xp otherwise; the second request is
// rejected instead of interleaved.
type SessionManager struct {
	activeDraws  sync.Map // username -> lock expiry time.Time
	cooldowns    sync.Map // username -> next allowed draw time.Time
	cooldown     time.Duration
	lockDuration time.Duration
}

func NewSessionManager(cooldown, lockDuration time.Duration) *SessionManager {
	return &SessionManager{
		cooldown:     cooldown,
		lockDuration: lockDuration,
	}
}

// CanDraw reports whether the user is off cooldown, and if not, how long
// remains.
func (m *SessionManager) CanDraw(username string) (bool, time.Duration) {
	if m.cooldown <= 0 {
		return true, 0
	}
	if next, exists := m.cooldowns.Load(username); exists {
		nextDraw := next.(time.Time)
		if time.Now().Before(nextDraw) {
			return false, time.Until(nextDraw)
		}
	}
	return true, 0
}

// LockDraw claims the user's draw slot. Returns false when another draw
// is already in flight and its lock has not expired.
func (m *SessionManager) LockDraw(username string) bool {
	now := time.Now()
	expiry := now.Add(m.lockDuration)

	if prev, loaded := m.activeDraws.LoadOrStore(username, expiry); loaded {
		if now.Before(prev.(time.Time)) {
			return false
		}
		// Stale lock from a crashed draw; take it over
		m.activeDraws.Store(username, expiry)
	}
	return true
}

func (m *SessionManager) ReleaseDraw(username string) {
	m.activeDraws.Delete(username)
}

func (m *SessionManager) SetCooldown(username string) {
	if m.cooldown <= 0 {
		return
	}
	m.cooldowns.Store(username, time.Now().Add(m.cooldown))
}

func (m *SessionManager) cleanupExpired() {
	now := time.Now()

	m.activeDraws.Range(func(key, value interface{}) bool {
		if now.After(value.(time.Time)) {
			m.activeDraws.Delete(key)
		}
		return true
	})

	m.cooldowns.Range(func(key, value interface{}) bool {
		if now.After(value.(time.Time)) {
			m.cooldowns.Delete(key)
		}
		return true
	})
}

// StartCleanupRoutine sweeps expired locks and cooldowns until the
// context is cancelled.
func (m *SessionManager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cleanupExpired()
		}
	}
}
