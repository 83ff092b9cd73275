package gacha

import (
	"testing"
	"time"
)

func TestSessionManagerLockDraw(t *testing.T) {
	m := NewSessionManager(0, time.Minute)

	if !m.LockDraw("ani") {
		t.Fatal("first lock should succeed")
	}
	if m.LockDraw("ani") {
		t.Error("second lock for the same user should fail while the first is held")
	}
	if !m.LockDraw("other") {
		t.Error("lock for a different user should succeed")
	}

	m.ReleaseDraw("ani")
	if !m.LockDraw("ani") {
		t.Error("lock should succeed again after release")
	}
}

func TestSessionManagerStaleLockTakeover(t *testing.T) {
	m := NewSessionManager(0, -time.Second)

	if !m.LockDraw("ani") {
		t.Fatal("first lock should succeed")
	}
	// The lock expired the instant it was taken, so the next caller
	// takes it over instead of waiting.
	if !m.LockDraw("ani") {
		t.Error("expired lock should be taken over")
	}
}

func TestSessionManagerCooldown(t *testing.T) {
	m := NewSessionManager(time.Minute, time.Minute)

	if ok, _ := m.CanDraw("ani"); !ok {
		t.Fatal("fresh user should be off cooldown")
	}

	m.SetCooldown("ani")
	ok, remaining := m.CanDraw("ani")
	if ok {
		t.Error("user should be on cooldown right after SetCooldown")
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Errorf("remaining = %v, want in (0, 1m]", remaining)
	}

	if ok, _ := m.CanDraw("other"); !ok {
		t.Error("cooldown should not leak across users")
	}
}

func TestSessionManagerZeroCooldownDisabled(t *testing.T) {
	m := NewSessionManager(0, time.Minute)

	m.SetCooldown("ani")
	if ok, _ := m.CanDraw("ani"); !ok {
		t.Error("zero cooldown should never block a draw")
	}
}

func TestSessionManagerCleanupExpired(t *testing.T) {
	m := NewSessionManager(-time.Second, -time.Second)

	m.activeDraws.Store("ani", time.Now().Add(-time.Second))
	m.cooldowns.Store("ani", time.Now().Add(-time.Second))
	m.cleanupExpired()

	if _, ok := m.activeDraws.Load("ani"); ok {
		t.Error("expired draw lock should be swept")
	}
	if _, ok := m.cooldowns.Load("ani"); ok {
		t.Error("expired cooldown should be swept")
	}
}
