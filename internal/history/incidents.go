package history

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IncidentCollector consumes camera transitions and records incident
// lifecycles: an incident opens on an up->down flip and closes when the
// camera comes back. Optionally pushes a Telegram message per flip.
func IncidentCollector(ctx context.Context, transitions <-chan Transition, dbpool *pgxpool.Pool, tbot *bot.Bot, chatID int64) {
	go func() {
		for tr := range transitions {
			if dbpool != nil {
				if err := persistIncident(ctx, dbpool, tr); err != nil {
					log.Warningf("incident persist failed: %v", err)
				}
			}

			if tbot != nil {
				var msg string
				if !tr.To {
					msg = formatDownMessage(tr)
				} else {
					msg = formatUpMessage(tr)
				}

				if _, err := tbot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   msg,
				}); err != nil {
					log.Warningf("telegram send failed: %v", err)
				}
			}
		}
	}()
}

func formatDownMessage(tr Transition) string {
	statusLine := "Status: camera unreachable"
	if tr.Reason != "" {
		statusLine = fmt.Sprintf("Status: %s", tr.Reason)
	}
	if tr.Code != "" {
		statusLine += fmt.Sprintf(" (code %s)", tr.Code)
	}

	return fmt.Sprintf("🚨 CAMERA DOWN\n%s\nAt: %s",
		statusLine,
		tr.At.UTC().Format("2006-01-02 15:04 MST"),
	)
}

func formatUpMessage(tr Transition) string {
	return fmt.Sprintf("✅ CAMERA RECOVERED\nAt: %s",
		tr.At.UTC().Format("2006-01-02 15:04 MST"),
	)
}
