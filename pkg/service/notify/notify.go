package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

// maxSectionFields is the Slack limit of fields in one section block
const maxSectionFields = 10

// Nop discards notifications
type Nop struct{}

var _ interfaces.Notifier = Nop{}

func (Nop) Notify(ctx context.Context, n *model.Notification) error {
	logging.From(ctx).Debug("notification skipped, no notifier configured", "title", n.Title)
	return nil
}

// Slack posts run summaries either through an incoming webhook or with a bot
// token to a channel
type Slack struct {
	webhookURL string
	api        *slack.Client
	channelID  string
}

var _ interfaces.Notifier = &Slack{}

// NewWebhook creates a notifier posting to an incoming webhook URL
func NewWebhook(webhookURL string) (*Slack, error) {
	if webhookURL == "" {
		return nil, goerr.New("Slack webhook URL is required")
	}
	return &Slack{webhookURL: webhookURL}, nil
}

// NewBot creates a notifier posting to channelID with a bot token
func NewBot(token, channelID string, opts ...slack.Option) (*Slack, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}
	return &Slack{api: slack.New(token, opts...), channelID: channelID}, nil
}

// Notify posts n
func (s *Slack) Notify(ctx context.Context, n *model.Notification) error {
	text := fallbackText(n)
	blocks := buildBlocks(n)

	if s.webhookURL != "" {
		msg := &slack.WebhookMessage{
			Text:   text,
			Blocks: &slack.Blocks{BlockSet: blocks},
		}
		if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
			return goerr.Wrap(err, "failed to post Slack webhook", goerr.V("title", n.Title))
		}
		return nil
	}

	_, _, err := s.api.PostMessageContext(ctx, s.channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post Slack message",
			goerr.V("channel_id", s.channelID), goerr.V("title", n.Title))
	}
	return nil
}

func title(n *model.Notification) string {
	if n.Alert {
		return ":warning: " + n.Title
	}
	return ":white_check_mark: " + n.Title
}

func fallbackText(n *model.Notification) string {
	parts := make([]string, 0, len(n.Fields))
	for _, f := range n.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Value))
	}
	return title(n) + " (" + strings.Join(parts, ", ") + ")"
}

func buildBlocks(n *model.Notification) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title(n), true, false)),
	}

	for start := 0; start < len(n.Fields); start += maxSectionFields {
		end := min(start+maxSectionFields, len(n.Fields))
		fields := make([]*slack.TextBlockObject, 0, end-start)
		for _, f := range n.Fields[start:end] {
			fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*%s*\n%s", f.Name, f.Value), false, false))
		}
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	}
	return blocks
}
