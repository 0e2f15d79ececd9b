package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/pkg/anthropic"
)

const extractionPrompt = `You are an expert at extracting structured data about private equity acquisitions in the HVAC (heating, ventilation, air conditioning), plumbing, and electrical services industry.

Analyze the following article text and extract:
1. Any PE firm names mentioned (e.g., Apex Service Partners, Alpine Investors, Wrench Group, Redwood Services, Kohlberg, Gridiron Capital)
2. Any HVAC/plumbing/electrical company names that were acquired or are being discussed
3. Acquisition details if present (date, amount, location)
4. Whether this article is relevant to PE activity in the HVAC industry

Return your response as JSON in this exact format:
{
  "title": "Brief descriptive title for the article",
  "summary": "2-3 sentence summary of the article content",
  "peFirmMentions": ["List of PE firm names mentioned"],
  "brandMentions": ["List of HVAC/plumbing/electrical company names mentioned"],
  "isRelevant": true/false (is this about PE activity in HVAC/home services?),
  "acquisitions": [
    {
      "peFirmName": "Name of the acquiring PE firm or null",
      "acquiredCompanyName": "Name of the acquired company or null",
      "acquisitionDate": "YYYY-MM-DD format or null if unknown",
      "dealAmount": "Dollar amount as string (e.g., '$15M') or 'Undisclosed' or null",
      "location": "City, State of acquired company or null",
      "relevanceScore": 0-100 (how confident are you this is a real acquisition?),
      "summary": "One sentence describing this acquisition"
    }
  ]
}

Only include acquisitions where you have high confidence the information is accurate.
If the article is not about HVAC/plumbing/electrical or private equity, set isRelevant to false and return empty arrays.`

// ExtractArticle pulls structured acquisition data out of full article text.
// Text beyond the budget is clipped before the call.
func (e *Extractor) ExtractArticle(ctx context.Context, articleText, articleURL string) (*model.ExtractedArticle, error) {
	if articleURL == "" {
		articleURL = "Unknown"
	}

	temp := 0.1
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.extractModel,
		MaxTokens:   2000,
		System:      anthropic.BuildCachedSystemBlocks(extractionPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Article URL: %s\n\nArticle Text:\n%s", articleURL, truncate(articleText, textBudget))},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: article extraction call")
	}
	e.usage.Add(resp.Usage)

	var extracted model.ExtractedArticle
	if err := json.Unmarshal([]byte(cleanJSON(responseText(resp))), &extracted); err != nil {
		return nil, eris.Wrap(err, "extract: parse article extraction")
	}
	return &extracted, nil
}
