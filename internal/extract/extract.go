// Package extract wraps the LLM calls of the pipeline: cheap relevance
// classification of candidate items, structured acquisition extraction from
// article text, and portfolio-brand extraction from platform pages.
package extract

import (
	"strings"

	"github.com/pmackar/aireshark/pkg/anthropic"
)

// textBudget caps how much article text goes into an extraction request.
const textBudget = 8000

// portfolioTextBudget caps page text for portfolio extraction; brands pages
// run longer than articles.
const portfolioTextBudget = 10000

// Extractor issues the pipeline's LLM calls. ClassifyModel is the cheap
// model used for relevance triage; ExtractModel handles structured output.
type Extractor struct {
	client        anthropic.Client
	classifyModel string
	extractModel  string
	usage         *anthropic.TokenUsage
}

// NewExtractor creates an Extractor using the given models.
func NewExtractor(client anthropic.Client, classifyModel, extractModel string) *Extractor {
	return &Extractor{
		client:        client,
		classifyModel: classifyModel,
		extractModel:  extractModel,
		usage:         &anthropic.TokenUsage{},
	}
}

// Usage returns accumulated token usage across all calls.
func (e *Extractor) Usage() *anthropic.TokenUsage {
	return e.usage
}

// truncate clips s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// responseText concatenates all text content blocks from a message response.
func responseText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
