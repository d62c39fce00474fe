package config

import (
	"strconv"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/password"
	"github.com/gasfornuis/kitchenchat-auth/throttle"
)

type SecurityConfig interface {
	GetSessionTTL() time.Duration
	GetBcryptCost() int
	GetLockoutSchedule() throttle.Schedule
	GetAuthRateLimit() (int, time.Duration)
	GetMaxBodyBytes() int64
	GetRequireSecureCookies() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionTTL() time.Duration {
	if raw := GetEnv("SESSION_TTL", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return 8 * time.Hour
}

func (Security) GetBcryptCost() int {
	if raw := GetEnv("BCRYPT_COST", ""); raw != "" {
		if cost, err := strconv.Atoi(raw); err == nil {
			return cost
		}
	}
	return password.DefaultCost
}

// GetLockoutSchedule returns the escalation policy for failed logins. The
// tiers are deployment tuning, not a contract.
func (Security) GetLockoutSchedule() throttle.Schedule {
	return throttle.DefaultSchedule()
}

func (Security) GetAuthRateLimit() (int, time.Duration) {
	return throttle.DefaultRateLimit, throttle.DefaultRateWindow
}

func (Security) GetMaxBodyBytes() int64 {
	return 50_000
}

// GetRequireSecureCookies keeps the session cookie off plaintext transports
// outside local development.
func (s Security) GetRequireSecureCookies() bool {
	return EnvVars{}.GetEnv() == "PRODUCTION"
}
