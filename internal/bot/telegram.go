package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"motionbot/internal/generate"
	"motionbot/internal/session"
)

// Bot wires the Telegram transport to the routing core.
type Bot struct {
	cfg       Config
	api       *tgbotapi.BotAPI
	h         *handler
	stability *generate.StabilityClient
	enhancer  *generate.Enhancer
	ffmpeg    *generate.FFmpeg
}

// New builds the bot and its full strategy chain from configuration.
func New(cfg Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	stability := generate.NewStabilityClient(cfg.StabilityKey, timeout)
	ffmpeg := generate.NewFFmpeg(cfg.FFmpegBin, cfg.TmpDir, time.Duration(cfg.ClipDurationSec)*time.Second)

	var enhancer *generate.Enhancer
	if cfg.GeminiKey != "" {
		enhancer, err = generate.NewEnhancer(context.Background(), cfg.GeminiKey, cfg.VisionModel)
		if err != nil {
			log.Warn().Err(err).Msg("gemini client unavailable, enhancement disabled")
		}
	}

	poll := generate.PollConfig{
		Interval:    time.Duration(cfg.PollIntervalSec) * time.Second,
		MaxAttempts: cfg.MaxPollAttempts,
	}
	var promptEnhancer generate.PromptEnhancer = generate.Passthrough{}
	if enhancer != nil {
		promptEnhancer = enhancer
	}
	orchestrator := generate.NewOrchestrator(
		generate.NewEnhancedStrategy(stability, promptEnhancer, poll),
		generate.NewDirectStrategy(stability, poll),
		generate.NewLocalClipStrategy(ffmpeg),
	)

	b := &Bot{
		cfg:       cfg,
		api:       api,
		stability: stability,
		enhancer:  enhancer,
		ffmpeg:    ffmpeg,
	}
	b.h = &handler{
		cfg:        cfg,
		sessions:   session.NewStore(),
		gen:        orchestrator,
		chatlog:    newChatLog(cfg.ChatLogFile),
		download:   b.downloadFile,
		replyText:  b.sendText,
		replyVideo: b.sendVideo,
		chatAction: b.sendUploadingAction,
		testReport: b.testReport,
		listModels: b.listModels,
	}
	return b, nil
}

// Run long-polls Telegram for updates until the context is cancelled. Each
// message is handled on its own goroutine; a failure for one user never
// takes down the dispatch loop.
func (b *Bot) Run(ctx context.Context) error {
	log.Info().Str("bot", b.api.Self.UserName).Msg("bot started")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 50
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			go b.dispatch(ctx, update.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int64("chat_id", msg.Chat.ID).Msg("handler panicked")
		}
	}()

	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand():
		b.h.handleCommand(ctx, userID, chatID, msg.Command(), msg.CommandArguments())
	case len(msg.Photo) > 0:
		// Telegram sends sizes smallest first; take the largest rendition.
		photo := msg.Photo[len(msg.Photo)-1]
		b.h.handlePhoto(ctx, userID, chatID, photo.FileID)
	case strings.TrimSpace(msg.Text) != "":
		b.h.handleText(ctx, userID, chatID, msg.Text)
	default:
		b.h.reply(userID, chatID, "", "Send a photo or a text prompt.", "unsupported_message")
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("telegram getFile failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(io.LimitReader(resp.Body, b.cfg.MaxImageBytes+1))
}

func (b *Bot) sendText(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) sendVideo(chatID int64, video []byte, caption string) error {
	v := tgbotapi.NewVideo(chatID, tgbotapi.FileBytes{Name: "motionbot.mp4", Bytes: video})
	v.Caption = caption
	_, err := b.api.Send(v)
	return err
}

func (b *Bot) sendUploadingAction(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadVideo)); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("chat action failed")
	}
}

// testReport backs the /test command: one line per provider.
func (b *Bot) testReport(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("🧪 API test results\n\n")

	sb.WriteString("Stability AI: ")
	switch {
	case !b.stability.Configured():
		sb.WriteString("❌ no API key")
	default:
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := b.stability.CheckAccount(checkCtx); err != nil {
			sb.WriteString("❌ " + err.Error())
		} else {
			sb.WriteString("✅ connected")
		}
	}

	sb.WriteString("\nGemini: ")
	switch {
	case b.enhancer == nil:
		sb.WriteString("❌ no API key")
	default:
		if _, err := b.enhancer.ListModels(ctx); err != nil {
			sb.WriteString("❌ " + err.Error())
		} else {
			sb.WriteString("✅ connected, model " + b.enhancer.Model())
		}
	}

	sb.WriteString("\nLocal ffmpeg: ")
	if b.ffmpeg.Available() {
		sb.WriteString("✅ " + b.ffmpeg.Bin)
	} else {
		sb.WriteString("❌ not found")
	}
	return sb.String()
}

func (b *Bot) listModels(ctx context.Context) ([]string, error) {
	if b.enhancer == nil {
		return nil, fmt.Errorf("GEMINI_API_KEY is not configured")
	}
	return b.enhancer.ListModels(ctx)
}
