package bot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full environment-derived configuration of the bot.
type Config struct {
	BotToken     string
	StabilityKey string
	GeminiKey    string
	VisionModel  string

	MaxImageBytes   int64
	MaxDimension    int
	TimeoutSec      int
	PollIntervalSec int
	MaxPollAttempts int
	ClipDurationSec int

	FFmpegBin   string
	TmpDir      string
	ChatLogFile string
}

// LoadConfig reads configuration from the environment, honoring a local .env
// file when present. Required values fail fast with the variable named.
func LoadConfig() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg := Config{}
	cfg.BotToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if cfg.BotToken == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	cfg.StabilityKey = strings.TrimSpace(os.Getenv("STABILITY_API_KEY"))
	cfg.GeminiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.VisionModel = strings.TrimSpace(os.Getenv("GEMINI_VISION_MODEL"))
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gemini-1.5-flash"
	}

	cfg.MaxImageBytes = 10 * 1024 * 1024
	if v := strings.TrimSpace(os.Getenv("MAX_IMAGE_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return cfg, errors.New("MAX_IMAGE_BYTES must be a positive integer")
		}
		cfg.MaxImageBytes = n
	}

	cfg.MaxDimension = 1024
	if v := strings.TrimSpace(os.Getenv("MAX_IMAGE_DIMENSION")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 {
			return cfg, errors.New("MAX_IMAGE_DIMENSION must be an integer >= 64")
		}
		cfg.MaxDimension = n
	}

	cfg.TimeoutSec = 180
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SEC")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, errors.New("REQUEST_TIMEOUT_SEC must be a positive integer")
		}
		cfg.TimeoutSec = n
	}

	cfg.PollIntervalSec = 5
	if v := strings.TrimSpace(os.Getenv("POLL_INTERVAL_SEC")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, errors.New("POLL_INTERVAL_SEC must be a positive integer")
		}
		cfg.PollIntervalSec = n
	}

	cfg.MaxPollAttempts = 30
	if v := strings.TrimSpace(os.Getenv("MAX_POLL_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, errors.New("MAX_POLL_ATTEMPTS must be a positive integer")
		}
		cfg.MaxPollAttempts = n
	}

	cfg.ClipDurationSec = 4
	if v := strings.TrimSpace(os.Getenv("CLIP_DURATION_SEC")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10 {
			return cfg, errors.New("CLIP_DURATION_SEC must be an integer between 1 and 10")
		}
		cfg.ClipDurationSec = n
	}

	cfg.FFmpegBin = strings.TrimSpace(os.Getenv("FFMPEG_BIN"))
	if cfg.FFmpegBin == "" {
		cfg.FFmpegBin = "ffmpeg"
	}

	cfg.TmpDir = strings.TrimSpace(os.Getenv("TMP_DIR"))
	if cfg.TmpDir == "" {
		cfg.TmpDir = filepath.Join(os.TempDir(), "motionbot")
	}
	if err := os.MkdirAll(cfg.TmpDir, 0o755); err != nil {
		return cfg, fmt.Errorf("failed to create TMP_DIR: %w", err)
	}

	cfg.ChatLogFile = strings.TrimSpace(os.Getenv("CHAT_LOG_FILE"))
	if cfg.ChatLogFile == "" {
		cfg.ChatLogFile = filepath.Join(cfg.TmpDir, "chat-history.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ChatLogFile), 0o755); err != nil {
		return cfg, fmt.Errorf("failed to create chat log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.ChatLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return cfg, fmt.Errorf("failed to initialize chat log file: %w", err)
	}
	_ = f.Close()

	return cfg, nil
}
