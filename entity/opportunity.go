package entity

import (
	"net/http"

	"ideaforge/lib/validate"
)

// Opportunity is one replicable SaaS idea returned by the advisor search.
// Fields mirror what the model is asked to produce; anything it omits is
// backfilled with defaults before the result leaves the advisor.
type Opportunity struct {
	Id            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ProblemSolved string   `json:"problem_solved"`
	Domain        string   `json:"domain"`
	MarketType    string   `json:"market_type"`
	ProductType   string   `json:"product_type"`
	Revenue       string   `json:"revenue"`
	RevenueSource string   `json:"revenue_source"`
	Stack         string   `json:"stack"`
	DevTime       string   `json:"dev_time"`
	Complexity    string   `json:"complexity"`
	Angle         string   `json:"angle"`
	Potential     string   `json:"potential"`
	Link          string   `json:"link,omitempty"`
	Tags          []string `json:"tags"`
	AddedAt       string   `json:"added_at"`
}

// SearchCriteria narrows the opportunity search.
type SearchCriteria struct {
	MaxDevDays   int      `json:"max_dev_days" validate:"min=0"`
	Difficulty   string   `json:"difficulty" validate:"omitempty,oneof=simple medium advanced"`
	Domains      []string `json:"domains"`
	ProductType  string   `json:"product_type"`
	TargetClient string   `json:"target_client"`
	MinRevenue   int      `json:"min_revenue" validate:"min=0"`
	Barriers     string   `json:"barriers"`
}

func (s *SearchCriteria) Bind(_ *http.Request) error {
	return validate.Struct(s)
}

// ChatMessage is one turn of an advisor conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// BriefRequest asks for a requirements brief for a chosen opportunity.
type BriefRequest struct {
	Opportunity *Opportunity `json:"opportunity" validate:"required"`
}

func (b *BriefRequest) Bind(_ *http.Request) error {
	return validate.Struct(b)
}

// ChatRequest is one user turn of the critical project review chat.
type ChatRequest struct {
	Opportunity *Opportunity  `json:"opportunity" validate:"required"`
	Brief       string        `json:"brief"`
	Messages    []ChatMessage `json:"messages" validate:"dive"`
	UserMessage string        `json:"user_message" validate:"required,min=1"`
}

func (c *ChatRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// GuideRequest is one user turn of the scripted development coaching flow.
// CurrentStep indexes the fixed stage list in the advisor.
type GuideRequest struct {
	ProjectName string        `json:"project_name" validate:"required,min=1"`
	Brief       string        `json:"brief"`
	CurrentStep int           `json:"current_step" validate:"min=0"`
	Messages    []ChatMessage `json:"messages" validate:"dive"`
	UserMessage string        `json:"user_message" validate:"required,min=1"`
}

func (g *GuideRequest) Bind(_ *http.Request) error {
	return validate.Struct(g)
}
