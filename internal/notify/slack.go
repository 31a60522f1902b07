package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"soulcare-backend/internal/models"

	"github.com/slack-go/slack"
)

// SlackNotifier posts escalation-queue alerts to the counselor team channel.
// Alerts are best-effort: a failed post is logged, never propagated, so the
// sweep and disposition paths cannot be stalled by Slack.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
// Returns nil when the token or channel is empty, which callers treat as
// alerting-disabled.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	if botToken == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
	}
}

// NotifyExpired alerts the team that an item breached its response deadline
// without a disposition.
func (n *SlackNotifier) NotifyExpired(ctx context.Context, item models.EscalationItem) {
	text := fmt.Sprintf(":rotating_light: Escalation item `%s` (priority *%s*) expired without review.\nDeadline was %s. A supervisor follow-up is required.",
		item.ID, item.Priority, item.ResponseTimeLimit.Format(time.RFC3339))
	n.post(ctx, text)
}

// NotifyEscalated alerts the supervisor pool that a reviewer escalated a case.
func (n *SlackNotifier) NotifyEscalated(ctx context.Context, item models.EscalationItem) {
	text := fmt.Sprintf(":arrow_up: Escalation item `%s` (priority *%s*) was escalated to the supervisor pool and awaits a senior reviewer.",
		item.ID, item.Priority)
	n.post(ctx, text)
}

func (n *SlackNotifier) post(ctx context.Context, text string) {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		log.Printf("WARN [SlackNotifier] Failed to post alert to %s: %v", n.channel, err)
	}
}
