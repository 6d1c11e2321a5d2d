package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/usage"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-5"
	defaultClaudeMaxTokens = 1024
	defaultMaxInputChars   = 12000
	defaultClaudeTimeout   = 30 * time.Second
)

const systemPrompt = `You extract study-abroad and exchange program details from web pages.
Reply with exactly one JSON object and nothing else, using these keys:
isProgram (boolean), programName, institution, location, duration, cost,
applicationDeadline, eligibility, description (strings) and highlights (array of at most 5 strings).
Use an empty string for unknown values. Set isProgram to false when the page does not describe a
specific exchange or study-abroad program.`

var errNoJSONObject = errors.New("model reply contains no JSON object")

// ClaudeConfig configures the Claude interpreter.
type ClaudeConfig struct {
	Enabled       bool          `env:"ANTHROPIC_ENABLED"         yaml:"enabled"`
	APIKey        string        `env:"ANTHROPIC_API_KEY"         yaml:"api_key"`
	BaseURL       string        `env:"ANTHROPIC_BASE_URL"        yaml:"base_url"`
	Model         string        `env:"ANTHROPIC_MODEL"           yaml:"model"`
	MaxTokens     int64         `env:"ANTHROPIC_MAX_TOKENS"      yaml:"max_tokens"`
	MaxInputChars int           `env:"ANTHROPIC_MAX_INPUT_CHARS" yaml:"max_input_chars"`
	Timeout       time.Duration `env:"ANTHROPIC_TIMEOUT"         yaml:"timeout"`
}

// SetDefaults fills zero fields.
func (c *ClaudeConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = defaultClaudeModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultClaudeMaxTokens
	}
	if c.MaxInputChars == 0 {
		c.MaxInputChars = defaultMaxInputChars
	}
	if c.Timeout == 0 {
		c.Timeout = defaultClaudeTimeout
	}
}

// ClaudeInterpreter asks Claude to read the page. Token usage is added to
// the usage meter on the context.
type ClaudeInterpreter struct {
	client        anthropic.Client
	model         string
	maxTokens     int64
	maxInputChars int
}

// NewClaudeInterpreter creates a ClaudeInterpreter. opts are appended after
// the options derived from cfg.
func NewClaudeInterpreter(cfg ClaudeConfig, opts ...option.RequestOption) *ClaudeInterpreter {
	cfg.SetDefaults()

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &ClaudeInterpreter{
		client:        anthropic.NewClient(clientOpts...),
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		maxInputChars: cfg.MaxInputChars,
	}
}

type claudeProgram struct {
	IsProgram           bool     `json:"isProgram"`
	ProgramName         string   `json:"programName"`
	Institution         string   `json:"institution"`
	Location            string   `json:"location"`
	Duration            string   `json:"duration"`
	Cost                string   `json:"cost"`
	ApplicationDeadline string   `json:"applicationDeadline"`
	Eligibility         string   `json:"eligibility"`
	Highlights          []string `json:"highlights"`
	Description         string   `json:"description"`
}

func (c *ClaudeInterpreter) Interpret(ctx context.Context, page *Page) (*domain.ProgramRecord, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(c.prompt(page))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude request: %w", err)
	}

	usage.FromContext(ctx).AddTokens(msg.Usage.InputTokens + msg.Usage.OutputTokens)

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}

	parsed, err := decodeProgram(reply.String())
	if err != nil {
		return nil, err
	}
	if !parsed.IsProgram || strings.TrimSpace(parsed.ProgramName) == "" {
		return nil, domain.ErrNotAProgram
	}

	highlights := parsed.Highlights
	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}
	if highlights == nil {
		highlights = []string{}
	}

	return &domain.ProgramRecord{
		ProgramName:         strings.TrimSpace(parsed.ProgramName),
		Institution:         strings.TrimSpace(parsed.Institution),
		Location:            strings.TrimSpace(parsed.Location),
		Duration:            strings.TrimSpace(parsed.Duration),
		Cost:                strings.TrimSpace(parsed.Cost),
		ApplicationDeadline: strings.TrimSpace(parsed.ApplicationDeadline),
		Eligibility:         strings.TrimSpace(parsed.Eligibility),
		Highlights:          highlights,
		Description:         strings.TrimSpace(parsed.Description),
		ProgramURL:          page.URL,
	}, nil
}

func (c *ClaudeInterpreter) prompt(page *Page) string {
	text := page.Text
	if r := []rune(text); len(r) > c.maxInputChars {
		text = string(r[:c.maxInputChars])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", page.URL)
	fmt.Fprintf(&b, "Title: %s\n", page.Title)
	if page.SiteName != "" {
		fmt.Fprintf(&b, "Site: %s\n", page.SiteName)
	}
	if page.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", page.Description)
	}
	if len(page.Headings) > 0 {
		fmt.Fprintf(&b, "Headings: %s\n", strings.Join(page.Headings, " / "))
	}
	b.WriteString("\nPage text:\n")
	b.WriteString(text)
	return b.String()
}

// decodeProgram reads the outermost JSON object from reply, tolerating
// surrounding prose or code fences.
func decodeProgram(reply string) (*claudeProgram, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}
	var parsed claudeProgram
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}
	return &parsed, nil
}
