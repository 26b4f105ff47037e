package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/roastme/internal/roast"
)

// NewRoastHandler answers "/roast <name> [tone]" with a roast. A trailing
// word is treated as the tone when it names one.
func NewRoastHandler(deps HandlerDeps) bot.HandlerFunc {
	log := deps.log().With("handler", "roast")

	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}

		name, mode := parseRoastArgs(update.Message.Text)
		res := deps.Roaster.Generate(ctx, roast.Request{Name: name, Mode: mode})
		log.InfoContext(ctx, "Roast requested from chat",
			"chat_id", update.Message.Chat.ID, "provenance", res.Provenance, "tone", res.Tone.String())

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   res.Text,
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send roast", "error", err, "chat_id", update.Message.Chat.ID)
		}
	}
}

// parseRoastArgs splits the command text into a name and an optional tone.
func parseRoastArgs(text string) (name, mode string) {
	fields := strings.Fields(text)
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		fields = fields[1:]
	}
	if len(fields) > 1 {
		last := fields[len(fields)-1]
		if strings.EqualFold(roast.ParseTone(last).String(), last) {
			mode = last
			fields = fields[:len(fields)-1]
		}
	}
	return strings.Join(fields, " "), mode
}

// NewStatsHandler reports the corpus size.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	log := deps.log().With("handler", "stats")

	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}

		text := "📊 Corpus size: unavailable"
		if n, err := deps.Corpus.Count(ctx); err != nil {
			log.WarnContext(ctx, "Failed to count corpus", "error", err)
		} else {
			text = fmt.Sprintf("📊 Corpus size: %d roasts", n)
		}

		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   text,
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send stats", "error", err)
		}
	}
}
