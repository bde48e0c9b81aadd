// Package ai resolves form fields that neither the knowledge base nor the
// pattern tables can name, by asking a Gemini model.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/davenull4x/applyforge/internal/config"
	"github.com/davenull4x/applyforge/internal/fields"
)

// generator is the slice of the Gemini model surface the classifier needs.
type generator interface {
	generate(ctx context.Context, prompt string) (string, error)
	close() error
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return extractText(resp)
}

func (g *geminiGenerator) close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// Classifier asks the model to name a field type, consulting the local cache
// first. It implements fields.AIFallback.
type Classifier struct {
	gen     generator
	cache   *Cache
	timeout time.Duration
	log     *zap.Logger
}

// NewClassifier builds a Gemini-backed field classifier from config. The
// cache may be nil when caching is disabled.
func NewClassifier(ctx context.Context, cfg config.AIConfig, cache *Cache, logger *zap.Logger) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Classifier{
		gen:     &geminiGenerator{client: client, model: cfg.Model},
		cache:   cache,
		timeout: cfg.APITimeout,
		log:     logger.Named("ai"),
	}, nil
}

// Close releases the underlying API client.
func (c *Classifier) Close() error {
	return c.gen.close()
}

const promptTemplate = `You are classifying a single HTML form field on a job application.
Field attributes:
  name: %q
  id: %q
  placeholder: %q
  label: %q
  input type: %q

Answer with exactly one of these labels and nothing else:
%s

If none apply, answer: unknown`

func buildPrompt(meta fields.Meta) string {
	return fmt.Sprintf(promptTemplate,
		meta.Name, meta.ID, meta.Placeholder, meta.Label, meta.InputType,
		strings.Join(fields.TypeNames(), ", "))
}

// ClassifyField resolves one field through the cache and then the model.
// Any answer outside the known label set comes back as TypeUnknown.
func (c *Classifier) ClassifyField(ctx context.Context, meta fields.Meta) (fields.Type, error) {
	prompt := buildPrompt(meta)
	key := Key(prompt)

	if c.cache != nil {
		if answer, ok := c.cache.Get(key); ok {
			c.log.Debug("cache hit", zap.String("field", meta.Identifier()), zap.String("answer", answer))
			return fields.ParseType(answer), nil
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	answer, err := c.gen.generate(ctx, prompt)
	if err != nil {
		return fields.TypeUnknown, fmt.Errorf("classify %q: %w", meta.Identifier(), err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))

	if c.cache != nil {
		c.cache.Put(key, answer)
	}
	t := fields.ParseType(answer)
	c.log.Debug("model classified field",
		zap.String("field", meta.Identifier()),
		zap.String("answer", answer),
		zap.String("type", string(t)))
	return t, nil
}
