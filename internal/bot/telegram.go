package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	boterr "github.com/voidexchange/walletbot/internal/errors"
)

// Telegram adapts the Bot API client to the Chat interface and runs the
// long-polling update loop.
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewTelegram(token string, logger *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, boterr.Wrap(boterr.CodeAuth, "telegram bot authorization failed", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Telegram{api: api, logger: logger}, nil
}

// Run consumes updates until ctx is cancelled. Each update is handled in
// its own goroutine; per-chat ordering is enforced by the bot's session
// locks, not here.
func (t *Telegram) Run(ctx context.Context, b *Bot) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.dispatch(ctx, b, update)
		}
	}
}

func (t *Telegram) dispatch(ctx context.Context, b *Bot, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		b.HandleMessage(ctx, update.Message.Chat.ID, update.Message.Text)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		b.HandleCallback(ctx, update.CallbackQuery.Message.Chat.ID, update.CallbackQuery.ID, update.CallbackQuery.Data)
	}
}

func (t *Telegram) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) SendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) SendTextWithReplyKeyboard(chatID int64, text string, rows [][]string) error {
	keyboardRows := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		keyboardRows = append(keyboardRows, buttons)
	}
	keyboard := tgbotapi.NewReplyKeyboard(keyboardRows...)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) SendTextWithInlineKeyboard(chatID int64, text string, rows [][]Button) error {
	keyboardRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		keyboardRows = append(keyboardRows, buttons)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboardRows...)
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) SendPhoto(chatID int64, caption string, png []byte) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.png", Bytes: png})
	photo.Caption = caption
	_, err := t.api.Send(photo)
	return err
}

func (t *Telegram) SendRemotePhoto(chatID int64, caption, url string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = caption
	_, err := t.api.Send(photo)
	return err
}

func (t *Telegram) SendLoading(chatID int64, text string) (int, error) {
	msg, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (t *Telegram) DeleteMessage(chatID int64, messageID int) error {
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (t *Telegram) AnswerCallback(callbackID string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}
