package config

import "time"

// Application-wide constants organized by domain

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout = 30 * time.Second
	DrawTimeout         = 30 * time.Second
	NetworkDialTimeout  = 5 * time.Second

	// Cache settings
	CacheExpiration      = 5 * time.Minute
	ImageCacheExpiration = 24 * time.Hour
	CatalogCacheSize     = 128
	ImageCacheSize       = 10000

	// Batch processing
	DefaultBatchSize = 500
)

// Draw defaults, overridable from config.toml
const (
	DefaultMaxGodPacksDaily = 100
	DefaultDrawCooldown     = 3 * time.Second
	DefaultDrawLockDuration = 30 * time.Second

	// Icon tickets granted on god-pack purchase regardless of outcome
	GodPackIconTicketGrant = 3
)

// Mission tracker settings
const (
	MissionQueueSize    = 256
	MissionStoreTimeout = 5 * time.Second
)
