package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ideaforge/entity"
	"ideaforge/lib/clock"
)

// parseOpportunities extracts the JSON list out of a model reply. Models
// wrap JSON in markdown fences more often than not, so the fences are
// stripped before decoding. Missing fields get defaults; ids are assigned
// here because the model cannot be trusted to keep them unique.
func parseOpportunities(content string) ([]*entity.Opportunity, error) {
	payload := extractJSON(content)

	var opportunities []*entity.Opportunity
	if err := json.Unmarshal([]byte(payload), &opportunities); err != nil {
		// a single object instead of an array is a known model quirk
		var one entity.Opportunity
		if err2 := json.Unmarshal([]byte(payload), &one); err2 != nil {
			return nil, fmt.Errorf("decode opportunities: %w", err)
		}
		opportunities = []*entity.Opportunity{&one}
	}

	added := strings.SplitN(clock.Now(), "T", 2)[0]
	for _, o := range opportunities {
		o.Id = uuid.NewString()
		o.AddedAt = added
		fillDefaults(o)
	}
	return opportunities, nil
}

func extractJSON(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	} else if idx = strings.Index(content, "```"); idx >= 0 {
		content = content[idx+len("```"):]
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
	}
	return strings.TrimSpace(content)
}

func fillDefaults(o *entity.Opportunity) {
	if o.Name == "" {
		o.Name = "Unnamed opportunity"
	}
	if o.Description == "" {
		o.Description = "No description provided"
	}
	if o.MarketType == "" {
		o.MarketType = "both"
	}
	if o.ProductType == "" {
		o.ProductType = "micro-saas"
	}
	if o.Complexity == "" {
		o.Complexity = "medium"
	}
	if o.DevTime == "" {
		o.DevTime = "2-4 weeks"
	}
	if o.Potential == "" {
		o.Potential = "medium"
	}
	if o.Tags == nil {
		o.Tags = []string{}
	}
}
