package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/service/summarizer"
	"github.com/urfave/cli/v3"
)

// Gemini holds configuration for the Gemini backed summarizer
type Gemini struct {
	projectID string
	location  string
	language  string
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "Gemini",
			Sources:     cli.EnvVars("STARLOG_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Category:    "Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("STARLOG_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "summary-language",
			Usage:       "Language of generated titles and summaries",
			Category:    "Gemini",
			Value:       "English",
			Sources:     cli.EnvVars("STARLOG_SUMMARY_LANGUAGE"),
			Destination: &g.language,
		},
	}
}

func (g Gemini) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.String("language", g.language),
	)
}

// Configure creates a new Gemini LLM client from the configured flags.
// Returns nil if projectID is not configured.
func (g *Gemini) Configure(ctx context.Context) (gollem.LLMClient, error) {
	if g.projectID == "" {
		return nil, nil
	}

	client, err := gemini.New(ctx, g.projectID, g.location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	return client, nil
}

// Summarizer builds the summarizer, or returns nil when Gemini is not
// configured so that commands without summarizer calls still work.
func (g *Gemini) Summarizer(ctx context.Context) (interfaces.Summarizer, error) {
	client, err := g.Configure(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}

	var opts []summarizer.Option
	if g.language != "" {
		opts = append(opts, summarizer.WithLanguage(g.language))
	}
	s, err := summarizer.New(client, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create summarizer")
	}
	return s, nil
}
