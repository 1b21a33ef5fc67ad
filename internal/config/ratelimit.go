package config

import "time"

// RateLimitConfig configures one Redis token bucket.  The global API limiter
// and the login limiter are two instances read from different env prefixes.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Message        string
	Debug          bool
}

// GlobalRateLimitDefaults allows 100 requests per client IP every 15 minutes.
func GlobalRateLimitDefaults() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       100,
		RefillTokens:   100,
		RefillInterval: 15 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl:api",
		Message:        "too many requests from this IP, please try again later",
	}
}

// LoginRateLimitDefaults allows 5 login attempts per client IP every 15 minutes.
func LoginRateLimitDefaults() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       5,
		RefillTokens:   5,
		RefillInterval: 15 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl:login",
		Message:        "too many login attempts, please try again later",
	}
}

// LoadRateLimitConfig overlays env variables named envPrefix+"_ENABLED",
// envPrefix+"_CAPACITY" and so on onto def, then clamps the result.
func LoadRateLimitConfig(envPrefix string, def RateLimitConfig) RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool(envPrefix+"_ENABLED", def.Enabled),
		Capacity:       envInt(envPrefix+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(envPrefix+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(envPrefix+"_REFILL_INTERVAL", def.RefillInterval),
		TTL:            envDur(envPrefix+"_TTL", def.TTL),
		KeyStrategy:    envStr(envPrefix+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         envStr(envPrefix+"_PREFIX", def.Prefix),
		Message:        def.Message,
		Debug:          envBool(envPrefix+"_DEBUG", def.Debug),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	minTTL := 2 * cfg.RefillInterval
	if cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
