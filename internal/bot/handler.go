package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"motionbot/internal/generate"
	"motionbot/internal/media"
	"motionbot/internal/session"
)

// Generator produces a video for an (image, prompt) pair, trying fallback
// strategies internally.
type Generator interface {
	Generate(ctx context.Context, image []byte, prompt string) (generate.Result, error)
}

// handler holds the routing core with every side effect injected, so the
// full photo-then-prompt flow is testable without Telegram or providers.
type handler struct {
	cfg      Config
	sessions *session.Store
	gen      Generator
	chatlog  *chatLog

	download   func(ctx context.Context, fileID string) ([]byte, error)
	replyText  func(chatID int64, text string) error
	replyVideo func(chatID int64, video []byte, caption string) error
	chatAction func(chatID int64)
	testReport func(ctx context.Context) string
	listModels func(ctx context.Context) ([]string, error)
}

const helpText = `🤖 Video Generator Bot

Send a photo, then a text prompt, and get a short generated video back.

How to use:
1. Send a photo
2. Send a prompt for the video
3. Get your generated video!

Commands:
/test - check provider connectivity
/models - list available vision models
/cancel - discard the pending photo
/ping - health check`

func (h *handler) handleCommand(ctx context.Context, userID, chatID int64, command, args string) {
	_ = args
	switch command {
	case "start", "help":
		h.reply(userID, chatID, "/"+command, helpText, "help")
	case "ping":
		h.reply(userID, chatID, "/ping", "pong", "ping")
	case "cancel":
		if _, ok := h.sessions.Get(userID); ok {
			h.sessions.Remove(userID)
			h.reply(userID, chatID, "/cancel", "Pending photo discarded. Send a new one when ready.", "cancel")
			return
		}
		h.reply(userID, chatID, "/cancel", "Nothing to cancel.", "cancel_noop")
	case "test":
		h.reply(userID, chatID, "/test", h.testReport(ctx), "test")
	case "models":
		names, err := h.listModels(ctx)
		if err != nil {
			h.reply(userID, chatID, "/models", "❌ Error listing models: "+err.Error(), "models_error")
			return
		}
		if len(names) == 0 {
			h.reply(userID, chatID, "/models", "No vision models available.", "models")
			return
		}
		h.reply(userID, chatID, "/models", "🤖 Available vision models:\n• "+strings.Join(names, "\n• "), "models")
	default:
		h.reply(userID, chatID, "/"+command, "Unknown command. Try /help.", "unknown_command")
	}
}

func (h *handler) handlePhoto(ctx context.Context, userID, chatID int64, fileID string) {
	data, err := h.download(ctx, fileID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("photo download failed")
		h.reply(userID, chatID, "[photo]", "Couldn't fetch that photo from Telegram, please try again.", "photo_download_error")
		return
	}

	if !media.Validate(data, h.cfg.MaxImageBytes) {
		text := fmt.Sprintf("That image can't be used. Send a JPEG or PNG up to %d MiB.", h.cfg.MaxImageBytes/(1024*1024))
		h.reply(userID, chatID, "[photo]", text, "photo_rejected")
		return
	}

	optimized := media.Optimize(data, h.cfg.MaxDimension, h.cfg.MaxDimension)
	path := filepath.Join(h.cfg.TmpDir, "photo-"+uuid.NewString()+".jpg")
	if err := os.WriteFile(path, optimized, 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to store photo")
		h.reply(userID, chatID, "[photo]", "Couldn't store that photo, please try again.", "photo_store_error")
		return
	}

	h.sessions.Put(userID, path)
	h.reply(userID, chatID, "[photo]",
		"🖼️ Photo received!\n\nNow send me a prompt for the video.\nExample: 'slow motion' or 'cinematic movement'",
		"photo_parked")
}

func (h *handler) handleText(ctx context.Context, userID, chatID int64, text string) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return
	}

	sess, ok := h.sessions.Claim(userID)
	if !ok {
		h.reply(userID, chatID, prompt, "Send me a photo first, then a text prompt for the video.", "prompt_without_photo")
		return
	}
	// The claimed image is ours now; it goes away on every exit path.
	defer os.Remove(sess.ImagePath)

	image, err := os.ReadFile(sess.ImagePath)
	if err != nil {
		log.Error().Err(err).Str("path", sess.ImagePath).Msg("stored photo unreadable")
		h.reply(userID, chatID, prompt, "The stored photo went missing, please send it again.", "photo_missing")
		return
	}

	h.reply(userID, chatID, prompt, "🎬 Generating your video... this usually takes a minute or two.", "generating")
	if h.chatAction != nil {
		h.chatAction(chatID)
	}

	res, err := h.gen.Generate(ctx, image, prompt)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("prompt", prompt).Msg("generation exhausted")
		h.reply(userID, chatID, prompt, "😞 Video generation failed: "+err.Error(), "generate_error")
		return
	}

	caption := "🎬 " + prompt
	if err := h.replyVideo(chatID, res.Video, caption); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("video delivery failed")
		h.reply(userID, chatID, prompt,
			"The video was generated but could not be delivered: "+err.Error(),
			"delivery_error")
		return
	}

	h.chatlog.append(chatLogRecord{
		Tag:        "video_sent",
		UserID:     userID,
		ChatID:     chatID,
		UserText:   prompt,
		BotText:    caption,
		Provider:   res.Provider,
		VideoBytes: len(res.Video),
	})
}

// reply sends a text message and records the exchange. Send failures are
// reportable, never fatal.
func (h *handler) reply(userID, chatID int64, userText, botText, tag string) {
	if err := h.replyText(chatID, botText); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Str("tag", tag).Msg("reply failed")
	}
	h.chatlog.append(chatLogRecord{Tag: tag, UserID: userID, ChatID: chatID, UserText: userText, BotText: botText})
}
