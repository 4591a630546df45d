package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/service/notify"
	"github.com/urfave/cli/v3"
)

// Notify holds CLI flags for run summary notifications
type Notify struct {
	webhookURL string
	botToken   string
	channel    string
}

func (x *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL for run summaries",
			Category:    "Notification",
			Sources:     cli.EnvVars("STARLOG_SLACK_WEBHOOK_URL"),
			Destination: &x.webhookURL,
		},
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack bot token for run summaries (used with --slack-channel)",
			Category:    "Notification",
			Sources:     cli.EnvVars("STARLOG_SLACK_BOT_TOKEN"),
			Destination: &x.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID for run summaries",
			Category:    "Notification",
			Sources:     cli.EnvVars("STARLOG_SLACK_CHANNEL"),
			Destination: &x.channel,
		},
	}
}

func (x Notify) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("webhook", x.webhookURL != ""),
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channel),
	)
}

// Configure returns the configured notifier, or notify.Nop when nothing is set
func (x *Notify) Configure() (interfaces.Notifier, error) {
	switch {
	case x.webhookURL != "" && x.botToken != "":
		return nil, goerr.Wrap(ErrInvalidConfig, "set either slack-webhook-url or slack-bot-token, not both")

	case x.webhookURL != "":
		n, err := notify.NewWebhook(x.webhookURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure slack webhook")
		}
		return n, nil

	case x.botToken != "":
		if x.channel == "" {
			return nil, goerr.Wrap(ErrMissingRequired, "slack-channel is required with slack-bot-token",
				goerr.V(FlagKey, "slack-channel"))
		}
		n, err := notify.NewBot(x.botToken, x.channel)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure slack bot")
		}
		return n, nil
	}

	return notify.Nop{}, nil
}
