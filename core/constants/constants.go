package constants

import "time"

const (
	ContextTokenData = "token_data"
	ContextRequestID = "request_id"

	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

// Database
const (
	DatabaseDriver          = "postgres"
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Redis keys
const (
	RedisSuggestionRunPrefix = "fairmeet:suggestion:"
	RedisOAuthStatePrefix    = "fairmeet:oauth_state:"
	OAuthStateTTL            = 10 * time.Minute
)

// Background tasks
const (
	TaskCalendarSyncBusy = "calendar:sync_busy"
	QueueDefault         = "default"
	DefaultSyncDays      = 14
	MaxSyncDays          = 60
)

// Busy block sources
const (
	BusySourceGoogle    = "google"
	BusySourceICSPrefix = "ics:"
	ProviderGoogle      = "google"
)
