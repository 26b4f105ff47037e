package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/roastme/internal/database"
	"github.com/edgard/roastme/internal/logger"
)

// Sender is the part of *bot.Bot used for notifications.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier sends new feedback to the admin chat.
type Notifier struct {
	sender Sender
	chatID int64
	log    *slog.Logger
}

// NewNotifier creates a Notifier that posts to chatID.
func NewNotifier(sender Sender, chatID int64, log *slog.Logger) *Notifier {
	if log == nil {
		log = logger.Discard()
	}
	return &Notifier{
		sender: sender,
		chatID: chatID,
		log:    log.With("component", "telegram_notifier"),
	}
}

// NotifyFeedback posts a summary of fb to the admin chat.
func (n *Notifier) NotifyFeedback(ctx context.Context, fb *database.Feedback) error {
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   formatFeedback(fb),
	})
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to send feedback notification", "error", err, "feedback_id", fb.ID)
		return fmt.Errorf("failed to send feedback notification: %w", err)
	}
	n.log.DebugContext(ctx, "Feedback notification sent", "feedback_id", fb.ID)
	return nil
}

func formatFeedback(fb *database.Feedback) string {
	var b strings.Builder
	b.WriteString("📬 New feedback\n\n")
	fmt.Fprintf(&b, "From: %s <%s>\n", fb.Name, fb.Email)
	fmt.Fprintf(&b, "Received: %s\n\n", fb.SubmittedAt.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString(fb.Message)
	return b.String()
}
