package models

const (
	// DefaultMaxRetries bounds broker-scheduled redeliveries per message
	DefaultMaxRetries = 3

	// DefaultRetryDelaySeconds is the TTL of the retry queue
	DefaultRetryDelaySeconds = 60

	// DefaultRateLimitRequests per user per window
	DefaultRateLimitRequests = 100

	// DefaultRateLimitWindowSeconds fixed rate-limit window
	DefaultRateLimitWindowSeconds = 60

	// DefaultPrefetch in-flight deliveries per consumer instance
	DefaultPrefetch = 8

	// DefaultEventsCacheTTL время жизни кэша списка событий
	DefaultEventsCacheTTL = 5 * 60 // seconds
)
