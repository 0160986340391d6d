package constants

import "time"

const (
	RegionCacheTTL = 3 * time.Second
	RoundCacheTTL  = 2 * time.Second
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	WebhookTimeout  = 10 * time.Second
)

const (
	DBMaxOpenConns    = 1 // single sqlite writer; the engine serializes mutation anyway
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultTickerInterval = 15 * time.Second
	MinTickerInterval     = 1 * time.Second
	MaxTickerInterval     = 1 * time.Minute
)

const (
	WebhookRetryAttempts = 3
	WebhookRetryBase     = 500 * time.Millisecond
)
