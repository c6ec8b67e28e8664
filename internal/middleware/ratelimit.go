package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP) across all capability and region endpoints
	GlobalMax        int
	GlobalExpiration time.Duration

	// Admission limits (per IP) - circuit establishment is cheap but each
	// success allocates session table state
	AdmissionMax        int
	AdmissionExpiration time.Duration

	// Console attach limits (per IP)
	ConsoleMax        int
	ConsoleExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 300/min - a viewer polls several capabilities steadily
		GlobalMax:        300,
		GlobalExpiration: 1 * time.Minute,

		// Admission: 30/min - regions hand off agents in bursts, not floods
		AdmissionMax:        30,
		AdmissionExpiration: 1 * time.Minute,

		// Console: 20 connections/min
		ConsoleMax:        20,
		ConsoleExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_GLOBAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.GlobalMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_ADMISSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AdmissionMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_CONSOLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ConsoleMax = n
		}
	}

	// Development mode: more lenient limits
	if os.Getenv("ENVIRONMENT") == "development" {
		config.GlobalMax = 2000
		config.AdmissionMax = 500
		config.ConsoleMax = 100
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// GlobalRateLimiter creates a rate limiter for all HTTP endpoints
func GlobalRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalMax,
		Expiration: config.GlobalExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalExpiration.Seconds()),
			})
		},
	})
}

// AdmissionRateLimiter guards the circuit establishment endpoint
func AdmissionRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.AdmissionMax,
		Expiration: config.AdmissionExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "admission:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Admission limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many circuit requests.",
				"retry_after": int(config.AdmissionExpiration.Seconds()),
			})
		},
	})
}

// ConsoleRateLimiter guards console attach connections
func ConsoleRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.ConsoleMax,
		Expiration: config.ConsoleExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "console:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Console limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many console connections.",
				"retry_after": int(config.ConsoleExpiration.Seconds()),
			})
		},
	})
}
