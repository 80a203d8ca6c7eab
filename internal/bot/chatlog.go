package bot

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type chatLogRecord struct {
	Timestamp  string `json:"timestamp"`
	Tag        string `json:"tag"`
	UserID     int64  `json:"user_id"`
	ChatID     int64  `json:"chat_id"`
	UserText   string `json:"user_text,omitempty"`
	BotText    string `json:"bot_text,omitempty"`
	Provider   string `json:"provider,omitempty"`
	VideoBytes int    `json:"video_bytes,omitempty"`
}

// chatLog appends one JSONL record per user/bot exchange. Logging failures
// are never fatal.
type chatLog struct {
	path string
}

func newChatLog(path string) *chatLog {
	return &chatLog{path: path}
}

func (c *chatLog) append(rec chatLogRecord) {
	if c == nil || c.path == "" {
		return
	}
	rec.Timestamp = time.Now().Format(time.RFC3339)
	rec.UserText = strings.TrimSpace(rec.UserText)
	rec.BotText = strings.TrimSpace(rec.BotText)

	b, err := json.Marshal(rec)
	if err != nil {
		log.Warn().Err(err).Msg("chat log marshal failed")
		return
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Msg("chat log open failed")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		log.Warn().Err(err).Msg("chat log write failed")
	}
}
