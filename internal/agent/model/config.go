package model

import "time"

// ================ Config ================
type SessionConfig struct {
	Store            string        `envconfig:"SESSION_STORE" default:"memory"`
	InactivityWindow time.Duration `envconfig:"SESSION_INACTIVITY_WINDOW" default:"30m"`
	SweepInterval    time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"10m"`
	HistoryLimit     int           `envconfig:"SESSION_HISTORY_LIMIT" default:"20"`
	// RecentHistory is how many entries a message reply echoes back.
	RecentHistory int `envconfig:"SESSION_RECENT_HISTORY" default:"3"`
}

type NLUModelConfig struct {
	Model       string        `envconfig:"NLU_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int           `envconfig:"NLU_MAX_TOKENS" default:"1000"`
	Temperature float32       `envconfig:"NLU_TEMPERATURE" default:"0.1"`
	Locale      string        `envconfig:"NLU_LOCALE" default:"en"`
	Timeout     time.Duration `envconfig:"NLU_TIMEOUT" default:"5s"`
	Intents     string        `envconfig:"NLU_INTENTS" default:"search.location, search.dates, search.guests, search.amenity, search.feature, search.price, search.multi, comparison, feedback.positive, feedback.negative, faq.booking, faq.cancellation, faq.pets, faq.checkin, greeting"`
	Entities    string        `envconfig:"NLU_ENTITIES" default:"location, amenity, feature, number, price, country, date"`
}

type PipelineConfig struct {
	// SentimentTimeout bounds the sentiment call separately from NLU.
	SentimentTimeout time.Duration `envconfig:"SENTIMENT_TIMEOUT" default:"2s"`
	// LocationFallbackConfidence is assigned to regex-sourced locations.
	LocationFallbackConfidence float64 `envconfig:"LOCATION_FALLBACK_CONFIDENCE" default:"0.7"`
	// DefaultStayDays is the span of a numeric date without a day count.
	DefaultStayDays int `envconfig:"DEFAULT_STAY_DAYS" default:"3"`
}

type RecommendConfig struct {
	MaxResults int `envconfig:"RECOMMEND_MAX_RESULTS" default:"5"`
}

type CatalogConfig struct {
	// Source selects "postgres" or the seeded "memory" catalog.
	Source          string        `envconfig:"CATALOG_SOURCE" default:"postgres"`
	AutoMigrate     bool          `envconfig:"CATALOG_AUTO_MIGRATE" default:"false"`
	QueryTimeout    time.Duration `envconfig:"CATALOG_QUERY_TIMEOUT" default:"3s"`
	AmenityCacheTTL time.Duration `envconfig:"AMENITY_CACHE_TTL" default:"1m"`
}

type EventsConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_SEARCH_TOPIC" default:"campfinder.searches"`
	// MaxRetries is the number of extra write attempts after the first failure.
	MaxRetries   int           `envconfig:"KAFKA_MAX_RETRIES" default:"2"`
	BatchTimeout time.Duration `envconfig:"KAFKA_BATCH_TIMEOUT" default:"100ms"`
	WriteTimeout time.Duration `envconfig:"KAFKA_WRITE_TIMEOUT" default:"2s"`
}
