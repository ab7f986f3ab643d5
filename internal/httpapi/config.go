package httpapi

import (
	"fmt"
	"time"
)

// Config is bound from SERVER_* variables.
type Config struct {
	Host            string        `split_words:"true" default:"0.0.0.0"`
	Port            int           `split_words:"true" default:"8080"`
	AllowedOrigins  []string      `split_words:"true" default:"*"`
	RateLimit       int           `split_words:"true" default:"120"`
	RateBurst       int           `split_words:"true" default:"20"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"30s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
