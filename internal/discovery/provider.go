package discovery

import (
	"context"
	"fmt"
	"strings"

	"newsreel/internal/config"
	"newsreel/internal/services/llm"
)

// Story is one news item returned by a provider. Title, Description, and URL
// are required downstream; Source and PublishedDate feed the script prompt
// when present.
type Story struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	Source        string `json:"source"`
	PublishedDate string `json:"published_date"`
}

// Provider fetches candidate stories for the pipeline.
type Provider interface {
	TopStories(ctx context.Context) ([]Story, error)
}

const discoverySystemPrompt = "You are a news wire editor with live web knowledge. You respond with valid JSON only, never with conversational text."

type llmProvider struct {
	cfg    *config.Config
	client *llm.Client
}

// NewLLMProvider builds the default provider: an LLM queried in JSON mode for
// the day's top stories.
func NewLLMProvider(cfg *config.Config) Provider {
	llmCfg := cfg.DiscoveryLLM()
	return &llmProvider{
		cfg: cfg,
		client: llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		}),
	}
}

func (p *llmProvider) TopStories(ctx context.Context) ([]Story, error) {
	content, err := p.client.CompleteJSON(ctx, discoverySystemPrompt, p.prompt())
	if err != nil {
		return nil, err
	}
	return decodeStories(content)
}

func (p *llmProvider) prompt() string {
	maxStories := p.cfg.Discovery.MaxStories
	if maxStories <= 0 {
		maxStories = 5
	}
	focus := strings.TrimSpace(p.cfg.Discovery.Focus)
	if focus == "" {
		focus = "current nationwide news"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Provide the top %d news stories from today.\n\n", maxStories)
	b.WriteString("Constraints:\n")
	fmt.Fprintf(&b, "1. Focus: %s.\n", focus)
	b.WriteString("2. Every story needs a title, a one-paragraph description, the canonical article URL, the publication name, and the publication date.\n")
	b.WriteString("3. Skip stories you cannot attribute to a real publication.\n\n")
	b.WriteString("Return the data ONLY as a valid JSON list of objects:\n")
	b.WriteString(`[{"title": "...", "description": "...", "url": "...", "source": "...", "published_date": "..."}]`)
	return b.String()
}

// decodeStories accepts both the bare list the prompt asks for and the
// {"stories": [...]} wrapper some models insist on producing.
func decodeStories(content string) ([]Story, error) {
	var stories []Story
	if err := llm.DecodeLLMJSON(content, &stories); err == nil {
		return stories, nil
	}
	var wrapper struct {
		Stories []Story `json:"stories"`
	}
	if err := llm.DecodeLLMJSON(content, &wrapper); err != nil {
		return nil, fmt.Errorf("decode stories payload: %w", err)
	}
	return wrapper.Stories, nil
}
