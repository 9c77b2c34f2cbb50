// SPDX-License-Identifier: MIT

// Package config loads the environment-driven service configuration.
package config

import (
	"strings"
	"time"
)

// Extractor modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Network family modes for the extractor.
const (
	NetIPv4 = "ipv4"
	NetIPv6 = "ipv6"
	NetAuto = "auto"
)

// Stream delivery modes.
const (
	StreamModeProxy    = "proxy"
	StreamModeRedirect = "redirect"
)

// Config holds the full service configuration.
type Config struct {
	Port     int
	LogLevel string

	// Upstream metadata provider (search/channel/item enrichment).
	BackendProvider string
	BackendBase     string

	// Extractor.
	YTDLPMode      string
	YTDLPCmd       string
	YTDLPRemoteURL string
	YTDLPArgs      []string
	YTDLPNet       string
	Cookies        string
	SponsorBlock   bool

	// Remux.
	FFmpegCmd string

	// Cache.
	RedisURL string
	RedisTTL time.Duration

	// Proxy behaviour.
	StreamMode string

	// Telemetry.
	TracingEnabled  bool
	TracingExporter string
	TracingEndpoint string
}

// FromEnv builds a Config from environment variables, applying defaults and
// validating enum-valued settings. It never fails; bad values fall back to
// defaults with a warning.
func FromEnv() Config {
	return Config{
		Port:     ParseInt("PORT", 8080),
		LogLevel: ParseString("LOG_LEVEL", "info"),

		BackendProvider: strings.ToLower(ParseString("BACKEND_PROVIDER", "invidious")),
		BackendBase:     strings.TrimRight(ParseString("BACKEND_BASE", "https://yewtu.be"), "/"),

		YTDLPMode:      ParseEnum("YTDLP_MODE", ModeLocal, ModeLocal, ModeRemote),
		YTDLPCmd:       ParseString("YTDLP_CMD", "yt-dlp"),
		YTDLPRemoteURL: ParseString("YTDLP_REMOTE_URL", ""),
		YTDLPArgs:      strings.Fields(ParseString("YTDLP_ARGS", "")),
		YTDLPNet:       ParseEnum("YTDLP_NET", NetIPv4, NetIPv4, NetIPv6, NetAuto),
		Cookies:        ParseString("YTDLP_COOKIES", ""),
		SponsorBlock:   ParseBool("SPONSORBLOCK", true),

		FFmpegCmd: ParseString("FFMPEG_CMD", "ffmpeg"),

		RedisURL: ParseString("REDIS_URL", "redis://redis:6379/0"),
		RedisTTL: ParseDuration("REDIS_TTL", 43200*time.Second),

		StreamMode: ParseEnum("STREAM_MODE", StreamModeProxy, StreamModeProxy, StreamModeRedirect),

		TracingEnabled:  ParseBool("OTEL_ENABLED", false),
		TracingExporter: ParseEnum("OTEL_EXPORTER", "grpc", "grpc", "http"),
		TracingEndpoint: ParseString("OTEL_ENDPOINT", "localhost:4317"),
	}
}
