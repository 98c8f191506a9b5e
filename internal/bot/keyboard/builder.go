// Package keyboard renders the channel-neutral buttons and list rows as
// Telegram inline keyboards.
package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/bazaar-bot/internal/channel"
)

const rowDescriptionSeparator = " · "

// Buttons renders quick-reply buttons, one per row.
func Buttons(buttons []channel.Button) (*telebot.ReplyMarkup, error) {
	kb := NewInlineKeyboard()
	for _, btn := range buttons {
		kb.AddRow(InlineButton{
			Text:   channel.Truncate(btn.Title, channel.MaxButtonTitle),
			Unique: UniqueButton,
			Data:   btn.ID,
		})
	}
	return kb.Build()
}

// List renders list rows, one per keyboard row, with the description after the title.
func List(rows []channel.Row) (*telebot.ReplyMarkup, error) {
	kb := NewInlineKeyboard()
	for _, row := range rows {
		text := channel.Truncate(row.Title, channel.MaxRowTitle)
		if row.Description != "" {
			text += rowDescriptionSeparator + channel.Truncate(row.Description, channel.MaxRowDescription)
		}
		kb.AddRow(InlineButton{
			Text:   text,
			Unique: UniqueRow,
			Data:   row.ID,
		})
	}
	return kb.Build()
}

// Selection maps callback data back to the event modality and the selected id.
func Selection(callbackData string) (channel.Modality, string, bool) {
	unique, data, err := DecodeCallback(callbackData)
	if err != nil || data == "" {
		return "", "", false
	}

	switch unique {
	case UniqueButton:
		return channel.ModalityButton, data, true
	case UniqueRow:
		return channel.ModalityList, data, true
	default:
		return "", "", false
	}
}
