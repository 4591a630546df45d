package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

// ErrEmptyResponse is returned when the LLM returns no text
var ErrEmptyResponse = goerr.New("empty LLM response")

// Summarizer implements interfaces.Summarizer on a gollem LLM client
type Summarizer struct {
	llmClient gollem.LLMClient
	language  string
}

var _ interfaces.Summarizer = &Summarizer{}

// Option is a functional option for Summarizer configuration
type Option func(*Summarizer)

// WithLanguage sets the output language of generated text
func WithLanguage(language string) Option {
	return func(s *Summarizer) {
		s.language = language
	}
}

// New creates a Summarizer with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (*Summarizer, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	s := &Summarizer{
		llmClient: llmClient,
		language:  "English",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type llmPoint struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

type llmDraft struct {
	MainCategory   string     `json:"main_category"`
	Subcategory    string     `json:"subcategory"`
	EventTitle     string     `json:"event_title"`
	EventSummary   string     `json:"event_summary"`
	TimelinePoints []llmPoint `json:"timeline_points"`
}

type llmCondensed struct {
	Text string `json:"text"`
}

func (s *Summarizer) generate(ctx context.Context, schema *gollem.Parameter, systemPrompt, prompt string, out any) error {
	session, err := s.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(schema),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(prompt)})
	if err != nil {
		return goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 || strings.TrimSpace(resp.Texts[0]) == "" {
		return goerr.Wrap(ErrEmptyResponse, "no text in LLM response")
	}

	if err := json.Unmarshal([]byte(resp.Texts[0]), out); err != nil {
		return goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", resp.Texts[0]))
	}
	return nil
}

// SummarizeMention drafts the timeline event an article describes for a figure.
// The category is passed through as returned; callers validate it.
func (s *Summarizer) SummarizeMention(ctx context.Context, figure model.FigureContext, articleBody string) (*model.MentionDraft, error) {
	var out llmDraft
	if err := s.generate(ctx, mentionSchema(), s.mentionSystemPrompt(), buildMentionPrompt(figure, articleBody), &out); err != nil {
		return nil, goerr.Wrap(err, "failed to summarize mention", goerr.V("figure_id", figure.ID))
	}

	draft := &model.MentionDraft{
		MainCategory: out.MainCategory,
		Subcategory:  strings.TrimSpace(out.Subcategory),
		EventTitle:   strings.TrimSpace(out.EventTitle),
		EventSummary: strings.TrimSpace(out.EventSummary),
	}
	for _, p := range out.TimelinePoints {
		draft.TimelinePoints = append(draft.TimelinePoints, model.TimelinePoint{
			Date:        strings.TrimSpace(p.Date),
			Description: strings.TrimSpace(p.Description),
		})
	}
	return draft, nil
}

// Condense rewrites text in at most maxWords words. The bound is requested,
// not guaranteed; callers re-check it.
func (s *Summarizer) Condense(ctx context.Context, text string, maxWords int) (string, error) {
	var out llmCondensed
	if err := s.generate(ctx, condenseSchema(maxWords), s.condenseSystemPrompt(maxWords), text, &out); err != nil {
		return "", goerr.Wrap(err, "failed to condense text", goerr.V("max_words", maxWords))
	}
	return strings.TrimSpace(out.Text), nil
}

func (s *Summarizer) mentionSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a news archivist maintaining timelines of public figures.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Read the article and describe the single event it reports about the given figure.\n")
	sb.WriteString("2. main_category must be exactly one of:\n")
	for _, c := range types.AllMainCategories() {
		fmt.Fprintf(&sb, "   - %s\n", c)
	}
	sb.WriteString("3. subcategory is a short free-form label inside the main category (e.g. \"Albums\", \"Endorsements\").\n")
	sb.WriteString("4. event_title names the event so that later articles about the same event get the same title.\n")
	sb.WriteString("5. event_summary is one or two sentences.\n")
	sb.WriteString("6. timeline_points lists dated developments; use YYYY-MM-DD, or YYYY-MM when the day is unknown.\n")
	fmt.Fprintf(&sb, "7. Write title, summary and descriptions in %s.\n", s.language)

	return sb.String()
}

func buildMentionPrompt(figure model.FigureContext, body string) string {
	var sb strings.Builder

	sb.WriteString("## Figure:\n\n")
	fmt.Fprintf(&sb, "**Name:** %s\n", figure.DisplayName)
	if len(figure.Aliases) > 0 {
		fmt.Fprintf(&sb, "**Also known as:** %s\n", strings.Join(figure.Aliases, ", "))
	}
	if figure.IsGroup {
		sb.WriteString("**Type:** group\n")
		if len(figure.Members) > 0 {
			fmt.Fprintf(&sb, "**Members:** %s\n", strings.Join(figure.Members, ", "))
		}
	} else if len(figure.Groups) > 0 {
		fmt.Fprintf(&sb, "**Member of:** %s\n", strings.Join(figure.Groups, ", "))
	}

	sb.WriteString("\n## Article:\n\n")
	sb.WriteString(body)
	sb.WriteString("\n")

	return sb.String()
}

func (s *Summarizer) condenseSystemPrompt(maxWords int) string {
	return fmt.Sprintf("Rewrite the user's text in %s using at most %d words. "+
		"Keep names, dates and numbers. Return only the rewritten text in the \"text\" field.",
		s.language, maxWords)
}

func mentionSchema() *gollem.Parameter {
	categories := make([]string, 0, 5)
	for _, c := range types.AllMainCategories() {
		categories = append(categories, string(c))
	}

	return &gollem.Parameter{
		Title:       "MentionDraft",
		Description: "A timeline event about one figure extracted from an article",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"main_category": {
				Type:        gollem.TypeString,
				Description: "Top level category of the event",
				Required:    true,
				Enum:        categories,
			},
			"subcategory": {
				Type:        gollem.TypeString,
				Description: "Free-form label inside the main category",
				Required:    true,
			},
			"event_title": {
				Type:        gollem.TypeString,
				Description: "Stable title of the event",
				Required:    true,
			},
			"event_summary": {
				Type:        gollem.TypeString,
				Description: "One or two sentence summary",
				Required:    true,
			},
			"timeline_points": {
				Type:        gollem.TypeArray,
				Description: "Dated developments of the event",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"date": {
							Type:        gollem.TypeString,
							Description: "YYYY-MM-DD or YYYY-MM",
							Required:    true,
						},
						"description": {
							Type:        gollem.TypeString,
							Description: "What happened on that date",
							Required:    true,
						},
					},
				},
			},
		},
	}
}

func condenseSchema(maxWords int) *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "CondensedText",
		Description: "Text rewritten within a word budget",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"text": {
				Type:        gollem.TypeString,
				Description: fmt.Sprintf("The rewritten text, at most %d words", maxWords),
				Required:    true,
			},
		},
	}
}
