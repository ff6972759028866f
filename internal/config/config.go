// Package config loads channel-engine tuning settings from environment
// variables, with sane defaults for local development. Connection-level
// concerns (broker URL, auth, TLS) belong to whatever owns the socket, not
// to this package.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	// FrameMax is the largest frame body this process will write; it
	// governs how a large publish gets split into body frames.
	FrameMax uint32

	// Prefetch is the default basic.qos prefetch count that
	// example-consumer applies to its channel.
	Prefetch uint16

	// MetricsPort serves /metrics for Prometheus scraping.
	MetricsPort string

	// StatsSchedule is a cron expression controlling how often
	// example-producer logs a channel-stats snapshot.
	StatsSchedule string
}

// Load reads environment variables and returns a populated Config. Every
// variable has a default so the example commands run with no environment
// set up at all.
func Load() *Config {
	return &Config{
		FrameMax:      getEnvUint32("AMQP_FRAME_MAX", 131072),
		Prefetch:      getEnvUint16("AMQP_PREFETCH", 32),
		MetricsPort:   getEnv("METRICS_PORT", "9100"),
		StatsSchedule: getEnv("AMQP_STATS_SCHEDULE", "@every 30s"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvUint32(key string, fallback uint32) uint32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fallback
	}
	return uint32(n)
}

func getEnvUint16(key string, fallback uint16) uint16 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return fallback
	}
	return uint16(n)
}
