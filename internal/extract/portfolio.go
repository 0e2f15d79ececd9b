package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/pkg/anthropic"
)

const portfolioPrompt = `You are extracting portfolio company information from a private equity firm's website.
Extract the list of portfolio companies/brands they own in the HVAC, plumbing, or electrical services space.

Return JSON in this format:
{
  "brands": [
    {
      "name": "Company Name",
      "location": "City, State or null",
      "website": "URL or null"
    }
  ],
  "description": "Brief description of the PE firm's focus in home services"
}`

// PortfolioInfo is the result of portfolio-page extraction.
type PortfolioInfo struct {
	Brands      []model.PortfolioBrand `json:"brands"`
	Description string                 `json:"description"`
}

// ExtractPortfolio lists the home-services brands named on a platform or firm
// portfolio page. It is the model fallback behind the custom per-platform
// extraction rules.
func (e *Extractor) ExtractPortfolio(ctx context.Context, pageText, firmName string) (*PortfolioInfo, error) {
	temp := 0.1
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.extractModel,
		MaxTokens:   2000,
		System:      anthropic.BuildCachedSystemBlocks(portfolioPrompt),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("PE Firm: %s\n\nPage Content:\n%s", firmName, truncate(pageText, portfolioTextBudget))},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: portfolio extraction call")
	}
	e.usage.Add(resp.Usage)

	var info PortfolioInfo
	if err := json.Unmarshal([]byte(cleanJSON(responseText(resp))), &info); err != nil {
		return nil, eris.Wrap(err, "extract: parse portfolio extraction")
	}
	return &info, nil
}
