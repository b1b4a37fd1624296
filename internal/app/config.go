package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	LogLevel      string
	LogFormat     string

	VideoStorageRoot string
	PlaylistFileName string
	FFmpegPath       string
	SegmentSeconds   int
	StreamCopy       bool

	// MaxConcurrentStreams caps simultaneous transcode jobs. 0 = unlimited.
	MaxConcurrentStreams int

	// PollInterval and MaxPollWait bound waiting for a playlist file that a
	// freshly started job has not written yet.
	PollInterval time.Duration
	MaxPollWait  time.Duration

	DefaultPing     time.Duration
	StartupOverhead time.Duration
	ReadyThreshold  float64
	PingInterval    time.Duration
	PingDialTimeout time.Duration

	StreamRetention time.Duration
	PruneInterval   time.Duration

	// RedisAddr enables the shared ping cache when non-empty.
	RedisAddr    string
	RedisPingTTL time.Duration

	// FileServerHosts lists hostnames whose URLs are directly downloadable.
	FileServerHosts []string
	RefreshInterval time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "matchcast"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),

		VideoStorageRoot: getEnv("VIDEO_STORAGE_ROOT", "data/streams"),
		PlaylistFileName: getEnv("PLAYLIST_FILE_NAME", "playlist.m3u8"),
		FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		SegmentSeconds:   int(getEnvInt64("HLS_SEGMENT_SECONDS", 4)),
		StreamCopy:       getEnvBool("STREAM_COPY", true),

		MaxConcurrentStreams: int(getEnvInt64("MAX_CONCURRENT_STREAMS", 0)),

		PollInterval: getEnvDuration("PLAYLIST_POLL_INTERVAL", time.Second),
		MaxPollWait:  getEnvDuration("PLAYLIST_MAX_POLL_WAIT", 30*time.Second),

		DefaultPing:     getEnvDuration("DEFAULT_PING", 100*time.Millisecond),
		StartupOverhead: getEnvDuration("STARTUP_OVERHEAD", 5*time.Second),
		ReadyThreshold:  getEnvFloat("READY_THRESHOLD", 0.01),
		PingInterval:    getEnvDuration("PING_INTERVAL", 5*time.Minute),
		PingDialTimeout: getEnvDuration("PING_DIAL_TIMEOUT", 3*time.Second),

		StreamRetention: getEnvDuration("STREAM_RETENTION", 72*time.Hour),
		PruneInterval:   getEnvDuration("PRUNE_INTERVAL", time.Hour),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisPingTTL: getEnvDuration("REDIS_PING_TTL", 15*time.Minute),

		FileServerHosts: splitList(getEnv("FILE_SERVER_HOSTS", "")),
		RefreshInterval: getEnvDuration("FILE_REFRESH_INTERVAL", time.Hour),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 100),
		RateLimitBurst: int(getEnvInt64("RATE_LIMIT_BURST", 200)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
