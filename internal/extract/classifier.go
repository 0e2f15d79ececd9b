package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/pkg/anthropic"
)

const classifyPrompt = `Determine if this article is relevant to private equity activity in the HVAC, plumbing, or electrical services industry.
Return JSON: { "isRelevant": true/false, "confidence": 0-100 }

Relevant topics include:
- PE firm acquisitions of HVAC/plumbing/electrical companies
- HVAC company mergers and acquisitions
- Home services industry consolidation
- PE-backed platforms in residential services

Not relevant:
- General HVAC product news
- DIY home improvement
- Commercial HVAC equipment
- Unrelated industries`

// ClassifyRelevance runs the cheap relevance triage on a title+snippet pair.
// It is fail-closed: any transport or parse error is logged and reported as
// not relevant with zero confidence, so a flaky model call can only ever skip
// an item, never let a junk item through.
func (e *Extractor) ClassifyRelevance(ctx context.Context, title, snippet string) model.Relevance {
	temp := 0.1
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.classifyModel,
		MaxTokens:   100,
		System:      anthropic.BuildCachedSystemBlocks(classifyPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Title: %s\n\nSnippet: %s", title, snippet)},
		},
	})
	if err != nil {
		zap.L().Warn("extract: classify call failed",
			zap.String("title", title),
			zap.Error(err))
		return model.Relevance{}
	}
	e.usage.Add(resp.Usage)

	var rel model.Relevance
	if err := json.Unmarshal([]byte(cleanJSON(responseText(resp))), &rel); err != nil {
		zap.L().Warn("extract: classify response unparseable",
			zap.String("title", title),
			zap.Error(err))
		return model.Relevance{}
	}
	return rel
}
