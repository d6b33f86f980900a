// Package telegram is the conversational front end: it turns chat messages
// into acquisition requests and pipeline outcomes back into chat replies. No
// business rule lives here; handlers translate and hand off.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mediagrab/internal/delivery"
	"mediagrab/internal/dispatch"
	"mediagrab/internal/media"
	"mediagrab/internal/pipeline"
	"mediagrab/internal/tokenstore"
)

var urlPattern = regexp.MustCompile(`(https?://\S+|www\.\S+)`)

// api is the slice of tgbotapi.BotAPI the handlers use; tests fake it.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Acquirer runs the acquisition pipeline for one request.
type Acquirer interface {
	Fetch(ctx context.Context, req pipeline.Request) (media.Selected, func(), error)
}

// Deliverer routes a selected file to the user.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, sel media.Selected) delivery.Outcome
}

// Bot wires the Telegram update stream to the acquisition pipeline.
type Bot struct {
	api      api
	bot      *tgbotapi.BotAPI
	tokens   *tokenstore.Store
	acquirer Acquirer
	deliver  Deliverer
	pool     *dispatch.Pool
	logger   *slog.Logger
}

// New authorizes a Telegram session and builds the Bot. The deliverer is set
// afterwards via SetDeliverer because the delivery router needs the bot as
// its inline transport.
func New(token string, tokens *tokenstore.Store, acquirer Acquirer, pool *dispatch.Pool, log *slog.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		api:      botAPI,
		bot:      botAPI,
		tokens:   tokens,
		acquirer: acquirer,
		pool:     pool,
		logger:   log.With(slog.String("component", "telegram")),
	}, nil
}

// SetDeliverer installs the delivery router. Must be called before Run.
func (b *Bot) SetDeliverer(d Deliverer) { b.deliver = d }

// Run starts long polling and blocks until ctx is cancelled. Handlers run on
// the polling goroutine; acquisition work is submitted to the pool so a slow
// download for one user never stalls updates for others.
func (b *Bot) Run(ctx context.Context) error {
	b.pool.Start(ctx)
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.bot.GetUpdatesChan(updateConfig)
	b.logger.Info("polling started", slog.String("username", b.bot.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.CallbackQuery != nil:
				b.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.reply(msg.Chat.ID, msgGreeting)
		}
		return
	}
	url, ok := firstURL(msg.Text)
	if !ok {
		b.reply(msg.Chat.ID, msgNoURL)
		return
	}
	token := b.tokens.Put(url)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎥 Video", callbackData(media.KindVideo, token)),
			tgbotapi.NewInlineKeyboardButtonData("🎵 Audio", callbackData(media.KindAudio, token)),
			tgbotapi.NewInlineKeyboardButtonData("🖼 Image", callbackData(media.KindImage, token)),
		),
	)
	prompt := tgbotapi.NewMessage(msg.Chat.ID, msgChooseFormat)
	prompt.ReplyMarkup = keyboard
	if _, err := b.api.Send(prompt); err != nil {
		b.logger.Error("send keyboard failed", slog.Any("error", err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Always answer so the client stops its spinner, whatever happens next.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("answer callback failed", slog.Any("error", err))
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	kind, token, ok := parseCallback(query.Data)
	if !ok {
		b.reply(chatID, msgBadRequest)
		return
	}
	url, ok := b.tokens.TakeOnce(token)
	if !ok {
		b.reply(chatID, msgExpired)
		return
	}

	accepted := b.pool.Submit(func(jobCtx context.Context) {
		b.runJob(jobCtx, chatID, pipeline.Request{URL: url, Kind: kind})
	})
	if !accepted {
		// Hand the token back so the same button works once the queue drains.
		b.tokens.Restore(token, url)
		b.reply(chatID, msgBusy)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, msgWorking)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("edit message failed", slog.Any("error", err))
	}
}

// runJob executes acquisition and delivery off the polling goroutine.
func (b *Bot) runJob(ctx context.Context, chatID int64, req pipeline.Request) {
	b.logger.Info("job start", slog.String("url", req.URL), slog.String("kind", string(req.Kind)))
	sel, cleanup, err := b.acquirer.Fetch(ctx, req)
	if err != nil {
		b.logger.Info("acquisition failed", slog.String("url", req.URL), slog.Any("error", err))
		b.reply(chatID, msgNoMedia)
		return
	}
	defer cleanup()

	outcome := b.deliver.Deliver(ctx, chatID, sel)
	if text := outcomeMessage(outcome); text != "" {
		b.reply(chatID, text)
	}
	b.logger.Info("job done", slog.String("url", req.URL), slog.String("status", string(outcome.Status)))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("send reply failed", slog.Any("error", err))
	}
}

// SendPhoto implements delivery.Transport.
func (b *Bot) SendPhoto(_ context.Context, chatID int64, path string) error {
	_, err := b.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path)))
	return err
}

// SendAudio implements delivery.Transport.
func (b *Bot) SendAudio(_ context.Context, chatID int64, path string) error {
	_, err := b.api.Send(tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path)))
	return err
}

// SendVideo implements delivery.Transport.
func (b *Bot) SendVideo(_ context.Context, chatID int64, path string) error {
	_, err := b.api.Send(tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path)))
	return err
}

// firstURL pulls the first link out of a message text.
func firstURL(text string) (string, bool) {
	m := urlPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

func callbackData(kind media.Kind, token string) string {
	return string(kind) + "|" + token
}

// parseCallback splits a "<kind>|<token>" callback payload.
func parseCallback(data string) (media.Kind, string, bool) {
	kindStr, token, found := strings.Cut(data, "|")
	if !found || token == "" {
		return "", "", false
	}
	kind, ok := media.ParseKind(kindStr)
	if !ok {
		return "", "", false
	}
	return kind, strings.TrimSpace(token), true
}
