package notify

import (
	"fmt"
	"time"

	"wingman/events"

	"github.com/bwmarrin/discordgo"
)

// Discord color constants
const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorDanger  = 0xED4245 // Red
)

// FormatDiscordTimestamp renders a time in each reader's local timezone.
// Format types: "t" = short time, "f" = short date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

func buildMarketCreatedEmbed(e events.MarketCreatedEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "💘 New market open",
		Description: fmt.Sprintf("**%s**", e.Title),
		Color:       ColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Betting closes",
				Value:  FormatDiscordTimestamp(e.ResolvesAt, "R"),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Market %s", e.MarketID),
		},
	}
}

func buildMarketResolvedEmbed(e events.MarketResolvedEvent) *discordgo.MessageEmbed {
	result := "❌ **NO**, the date did not work out"
	color := ColorDanger
	if e.Outcome {
		result = "✅ **YES**, the date was a success"
		color = ColorSuccess
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Total Pool",
			Value:  e.TotalPool.String(),
			Inline: true,
		},
		{
			Name:   "Winners",
			Value:  fmt.Sprintf("%d", len(e.Payouts)),
			Inline: true,
		},
	}
	if !e.Remainder.IsZero() {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Left in escrow",
			Value:  e.Remainder.String(),
			Inline: true,
		})
	}
	if e.Evidence != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Evidence",
			Value: e.Evidence,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: result,
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Resolved %s", e.ResolvedAt.UTC().Format(time.RFC1123)),
		},
	}
}
