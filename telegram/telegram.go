package telegram

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"wardrobeapi/regulator"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func EscapeMessage(message string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return r.Replace(message)
}

// messageSender is the part of tgbotapi.BotAPI the notifier needs.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts regulator notifications and digests to the operators' chats.
type Notifier struct {
	bot     messageSender
	chatIDs []int64
}

func NewNotifier(bot messageSender, chatIDs ...int64) *Notifier {
	return &Notifier{bot: bot, chatIDs: chatIDs}
}

// NewNotifierFromEnv reads TG_TOKEN and the comma separated TG_ADMIN_CHATS.
// It returns nil when telegram is not configured.
func NewNotifierFromEnv() (*Notifier, error) {
	token := os.Getenv("TG_TOKEN")
	chats := os.Getenv("TG_ADMIN_CHATS")
	if token == "" || chats == "" {
		return nil, nil
	}
	chatIDs, err := ParseChatIDs(chats)
	if err != nil {
		return nil, err
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return NewNotifier(bot, chatIDs...), nil
}

func ParseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (n *Notifier) Notify(_ context.Context, note regulator.Notification) error {
	return n.send(FormatNotification(note))
}

func (n *Notifier) SendDigest(_ context.Context, text string) error {
	return n.send("```\n" + text + "```")
}

func (n *Notifier) send(text string) error {
	var firstErr error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.bot.Send(msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("telegram send to %d: %w", chatID, err)
		}
	}
	return firstErr
}

func FormatNotification(note regulator.Notification) string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("*%s* (%s)\n", EscapeMessage(note.RegulationName), EscapeMessage(string(note.Action))))
	if note.Message != "" {
		b.WriteString(EscapeMessage(note.Message) + "\n")
	}
	b.WriteString(fmt.Sprintf("Code: %s\nSeverity: %s\nSource: %s\n",
		EscapeMessage(note.Error.Code), note.Error.Severity, note.Error.Source))
	if note.Error.Message != "" {
		b.WriteString("Error: " + EscapeMessage(note.Error.Message) + "\n")
	}
	b.WriteString("At: " + note.TriggeredAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
