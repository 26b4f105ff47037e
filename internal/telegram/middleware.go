package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const notAuthorizedMsg = "🚫 Sorry, this command is for the admin only."

// AdminOnly lets a command through only when it is sent from the admin chat.
func AdminOnly(deps HandlerDeps) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil {
				return
			}

			chatID := update.Message.Chat.ID
			if deps.AdminChatID == 0 || chatID != deps.AdminChatID {
				log := deps.log().With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized command attempt", "chat_id", chatID)

				if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   notAuthorizedMsg,
				}); err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
