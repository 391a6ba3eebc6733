package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the capture client and the relay.
type Config struct {
	Relay   RelayConfig
	Media   MediaConfig
	Labels  LabelsConfig
	Session SessionConfig
	Server  ServerConfig
	Log     LogConfig
}

type RelayConfig struct {
	BaseURL        string
	Topology       string
	EndpointsFile  string
	RequestTimeout time.Duration
}

type MediaConfig struct {
	FFMPEGCommand string
	VideoEnabled  bool
	AudioEnabled  bool
	VideoFormat   string
	VideoDevice   string
	AudioFormat   string
	AudioDevice   string
	FrameRate     int
	Width         int
	Height        int
	PreviewRate   int
	Transcode     string
}

type LabelsConfig struct {
	Path string
}

type SessionConfig struct {
	ChunkSize    int
	DrainTimeout time.Duration
	DefaultTask  string
}

// ServerConfig is used by the development relay.
type ServerConfig struct {
	Addr      string
	UploadDir string
}

type LogConfig struct {
	Level string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	configDir := filepath.Join(home, ".config", "signsync")
	endpointsPath := strings.TrimSpace(os.Getenv("SIGNSYNC_ENDPOINTS_FILE"))
	if endpointsPath == "" {
		endpointsPath = existingOrEmpty(
			filepath.Join(configDir, "endpoints.yaml"),
			filepath.Join(configDir, "endpoints.toml"),
			filepath.Join(configDir, "endpoints.json"),
		)
	}
	labelsPath := strings.TrimSpace(os.Getenv("SIGNSYNC_LABELS_FILE"))
	if labelsPath == "" {
		labelsPath = firstExisting(filepath.Join(configDir, "labels.rules"))
	}

	cfg := Config{
		Relay: RelayConfig{
			BaseURL:        envOrDefault("SIGNSYNC_RELAY_URL", "http://127.0.0.1:5000"),
			Topology:       strings.ToLower(envOrDefault("SIGNSYNC_RECORDING_TOPOLOGY", "predict")),
			EndpointsFile:  endpointsPath,
			RequestTimeout: time.Duration(envOrDefaultInt("SIGNSYNC_DISPATCH_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		Media: MediaConfig{
			FFMPEGCommand: envOrDefault("SIGNSYNC_FFMPEG_COMMAND", "ffmpeg"),
			VideoEnabled:  envOrDefaultBool("SIGNSYNC_VIDEO_ENABLED", true),
			AudioEnabled:  envOrDefaultBool("SIGNSYNC_AUDIO_ENABLED", false),
			VideoFormat:   envOrDefault("SIGNSYNC_VIDEO_INPUT_FORMAT", "v4l2"),
			VideoDevice:   envOrDefault("SIGNSYNC_VIDEO_INPUT_DEVICE", "/dev/video0"),
			AudioFormat:   envOrDefault("SIGNSYNC_AUDIO_INPUT_FORMAT", "pulse"),
			AudioDevice:   envOrDefault("SIGNSYNC_AUDIO_INPUT_DEVICE", "default"),
			FrameRate:     envOrDefaultInt("SIGNSYNC_FRAME_RATE", 30),
			Width:         envOrDefaultInt("SIGNSYNC_VIDEO_WIDTH", 0),
			Height:        envOrDefaultInt("SIGNSYNC_VIDEO_HEIGHT", 0),
			PreviewRate:   envOrDefaultInt("SIGNSYNC_PREVIEW_FPS", 10),
			Transcode:     strings.ToLower(envOrDefault("SIGNSYNC_TRANSCODE", "relabel")),
		},
		Labels: LabelsConfig{
			Path: labelsPath,
		},
		Session: SessionConfig{
			ChunkSize:    envOrDefaultInt("SIGNSYNC_CHUNK_SIZE", 32*1024),
			DrainTimeout: time.Duration(envOrDefaultInt("SIGNSYNC_DRAIN_TIMEOUT_MS", 4000)) * time.Millisecond,
			DefaultTask:  strings.ToLower(envOrDefault("SIGNSYNC_DEFAULT_TASK", "emotion")),
		},
		Server: ServerConfig{
			Addr:      envOrDefault("SIGNSYNC_RELAY_ADDR", ":5000"),
			UploadDir: envOrDefault("SIGNSYNC_UPLOAD_DIR", "uploads"),
		},
		Log: LogConfig{
			Level: strings.ToLower(envOrDefault("SIGNSYNC_LOG_LEVEL", "info")),
		},
	}

	if cfg.Relay.RequestTimeout <= 0 {
		cfg.Relay.RequestTimeout = 30 * time.Second
	}
	if cfg.Media.FrameRate <= 0 {
		cfg.Media.FrameRate = 30
	}
	if cfg.Media.PreviewRate <= 0 {
		cfg.Media.PreviewRate = 10
	}
	if cfg.Media.Width < 0 || cfg.Media.Height < 0 {
		cfg.Media.Width, cfg.Media.Height = 0, 0
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 32 * 1024
	}
	if cfg.Session.DrainTimeout <= 0 {
		cfg.Session.DrainTimeout = 4 * time.Second
	}

	return cfg, nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

// existingOrEmpty is firstExisting without the fallback to the first path.
func existingOrEmpty(paths ...string) string {
	found := firstExisting(paths...)
	if _, err := os.Stat(found); err != nil {
		return ""
	}
	return found
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
