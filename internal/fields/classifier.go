package fields

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/ats"
)

// AIFallback classifies a field via an external service. Implementations must
// only return members of the closed Type vocabulary; any transport or
// vocabulary failure is reported as an error and absorbed here.
type AIFallback interface {
	ClassifyField(ctx context.Context, meta Meta) (Type, error)
}

// Classifier resolves a field's semantic type. Resolution order, first hit
// wins: platform-scoped knowledge base, general knowledge base, static
// pattern table, AI fallback, Unknown.
type Classifier struct {
	kb  *KnowledgeBase
	ai  AIFallback // nil disables the fallback
	log *zap.Logger
}

// NewClassifier creates a Classifier. ai may be nil.
func NewClassifier(kb *KnowledgeBase, ai AIFallback, logger *zap.Logger) *Classifier {
	return &Classifier{kb: kb, ai: ai, log: logger.Named("classifier")}
}

// Classify resolves meta to a field type. Unknown is a valid terminal result
// and never an error; AI failures degrade to Unknown at this boundary.
func (c *Classifier) Classify(ctx context.Context, meta Meta, platform ats.Platform) Type {
	identifier := meta.Identifier()
	if identifier == "" {
		return TypeUnknown
	}

	if c.kb != nil {
		if t, ok := c.kb.Lookup(identifier, platform); ok {
			c.log.Debug("Classified from knowledge base",
				zap.String("identifier", identifier), zap.String("type", string(t)))
			return t
		}
	}

	if t := MatchPatterns(identifier); t != TypeUnknown {
		return t
	}

	if c.ai != nil {
		t, err := c.ai.ClassifyField(ctx, meta)
		if err != nil {
			c.log.Warn("AI classification failed, treating field as unknown",
				zap.String("identifier", identifier), zap.Error(err))
			return TypeUnknown
		}
		c.log.Debug("Classified via AI fallback",
			zap.String("identifier", identifier), zap.String("type", string(t)))
		return t
	}

	return TypeUnknown
}

// MatchPatterns searches the normalized identifier text against the static
// pattern table in fixed priority order. Deterministic: same input, same
// output, across runs. The bare "name" substring is a last-resort pass after
// the whole table: "github_username" and "linkedin_username" must resolve to
// their URL types, never to full_name.
func MatchPatterns(identifier string) Type {
	text := strings.ToLower(identifier)
	for _, fieldType := range classificationOrder {
		for _, pattern := range patternTable[fieldType] {
			if strings.Contains(text, pattern) {
				return fieldType
			}
		}
	}
	if strings.Contains(text, "name") {
		return TypeFullName
	}
	return TypeUnknown
}
