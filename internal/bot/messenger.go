package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the slice of the Telegram client the transport needs. Tests
// exercise handlers through a fake implementation.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger delivers messages through the Telegram API. It satisfies
// admin.Messenger so broadcasts and reminders reuse the same path.
type Messenger struct {
	api    sender
	logger *log.Logger
}

// NewMessenger wraps a Telegram client.
func NewMessenger(api sender, logger *log.Logger) *Messenger {
	if logger == nil {
		logger = log.Default()
	}
	return &Messenger{api: api, logger: logger}
}

// SendText delivers a plain text message to one chat.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// SendConfirmPrompt delivers text with an inline confirm button for the
// event. Reminders use it so recipients confirm without reopening the event.
func (m *Messenger) SendConfirmPrompt(ctx context.Context, chatID int64, text, eventID string) error {
	return m.sendMarkup(ctx, chatID, text, confirmPromptKeyboard(eventID))
}

// sendMarkup delivers text with a keyboard attached.
func (m *Messenger) sendMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// sendDocument delivers an in-memory file as an attachment.
func (m *Messenger) sendDocument(ctx context.Context, chatID int64, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := m.api.Send(doc); err != nil {
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	return nil
}

// editText replaces the text and keyboard of an existing message.
func (m *Messenger) editText(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup
	if _, err := m.api.Send(edit); err != nil {
		return fmt.Errorf("edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// answerCallback acknowledges a callback so the client stops its spinner.
// Failures are logged only, the user already got their reply.
func (m *Messenger) answerCallback(callbackID, text string) {
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		m.logger.Printf("answer callback: %v", err)
	}
}
