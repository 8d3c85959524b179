package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramGateway delivers outbound messages through the Telegram Bot API.
type TelegramGateway struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramGateway(bot *tgbotapi.BotAPI) *TelegramGateway {
	return &TelegramGateway{bot: bot}
}

func (g *TelegramGateway) SendText(ctx context.Context, chatID int64, text string, menu Menu) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup, ok := inlineKeyboard(menu); ok {
		msg.ReplyMarkup = markup
	}

	if _, err := g.bot.Send(msg); err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}

func (g *TelegramGateway) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, menu Menu) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if markup, ok := inlineKeyboard(menu); ok {
		photo.ReplyMarkup = markup
	}

	if _, err := g.bot.Send(photo); err != nil {
		return fmt.Errorf("send photo to chat %d: %w", chatID, err)
	}
	return nil
}

func inlineKeyboard(menu Menu) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(menu) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu))
	for _, row := range menu {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
