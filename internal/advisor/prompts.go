package advisor

import (
	"fmt"
	"strings"

	"ideaforge/entity"
)

// stages is the ordered development coaching script. CurrentStep in a saved
// session indexes this list.
var stages = []entity.GuideStep{
	{Id: "setup", Title: "Initial setup", Tool: "cursor", Description: "Development environment and project scaffolding"},
	{Id: "backend", Title: "Backend development", Tool: "cursor", Description: "API, database and business logic"},
	{Id: "frontend", Title: "User interface", Tool: "cursor", Description: "Application UI built with Cursor"},
	{Id: "landing", Title: "Landing page", Tool: "v0", Description: "Marketing page built with v0.dev"},
	{Id: "deploy", Title: "Deployment", Tool: "general", Description: "Going to production"},
}

// StageAt returns the coaching stage for a step index.
func StageAt(step int) (entity.GuideStep, bool) {
	if step < 0 || step >= len(stages) {
		return entity.GuideStep{}, false
	}
	return stages[step], true
}

// StageCount is the length of the coaching script.
func StageCount() int {
	return len(stages)
}

func searchPrompt(c *entity.SearchCriteria) string {
	devTime := "3+ months"
	switch {
	case c.MaxDevDays <= 1:
		devTime = "1 day"
	case c.MaxDevDays <= 7:
		devTime = "1 week"
	case c.MaxDevDays <= 30:
		devTime = "1 month"
	}

	difficulty := "medium (React/Vue)"
	switch c.Difficulty {
	case "simple":
		difficulty = "simple (HTML/CSS/JS)"
	case "advanced":
		difficulty = "advanced (full-stack)"
	}

	domains := "any domain"
	if len(c.Domains) > 0 {
		domains = strings.Join(c.Domains, ", ")
	}

	var b strings.Builder
	b.WriteString("Real-time web search: 5 replicable micro-SaaS opportunities.\n\n")
	fmt.Fprintf(&b, "Criteria: %s build time, %s, %s, %d+/month revenue.\n", devTime, difficulty, domains, c.MinRevenue)
	if c.ProductType != "" {
		fmt.Fprintf(&b, "Product type: %s.\n", c.ProductType)
	}
	if c.TargetClient != "" {
		fmt.Fprintf(&b, "Target client: %s.\n", c.TargetClient)
	}
	if c.Barriers != "" {
		fmt.Fprintf(&b, "Constraints: %s.\n", c.Barriers)
	}
	b.WriteString(`
Explore Product Hunt, Indie Hackers, Reddit r/SideProject, the Chrome Store. Only report real opportunities with documented revenue.

Answer with a JSON array:
[{
  "name": "Exact name",
  "description": "Short description",
  "problem_solved": "Problem it solves",
  "domain": "Category",
  "market_type": "b2b/b2c/both",
  "product_type": "micro-saas/extension/application/api",
  "revenue": "Real revenue + source",
  "revenue_source": "Exact source",
  "stack": "Observed technologies",
  "dev_time": "Realistic estimate",
  "complexity": "simple/medium/advanced",
  "angle": "Specific replication angle",
  "potential": "low/medium/high",
  "link": "Official URL",
  "tags": ["keywords"]
}]

Use verifiable data only.`)
	return b.String()
}

func briefPrompt(o *entity.Opportunity) string {
	return fmt.Sprintf(`Write the full requirements document for the following SaaS project.

Name: %s
Description: %s
Problem solved: %s
Stack: %s
Complexity: %s
Estimated build time: %s
Revenue reference: %s

Structure the document with these sections: overview, target users, functional requirements, data model, technical architecture, MVP scope, pricing, launch plan. Be concrete: name the technologies, the entities, the screens. No filler.`,
		o.Name, o.Description, o.ProblemSolved, o.Stack, o.Complexity, o.DevTime, o.Revenue)
}

func chatPrompt(req *entity.ChatRequest) string {
	brief := req.Brief
	if len(brief) > 1000 {
		brief = brief[:1000] + "... [full brief available]"
	}
	return fmt.Sprintf(`PROJECT CONTEXT:
Name: %s
Description: %s
Problem solved: %s
Stack: %s
Complexity: %s
Build time: %s
Revenue reference: %s

REQUIREMENTS BRIEF:
%s

USER MESSAGE:
"%s"

Review critically: real technical feasibility, commercial viability, existing competition, required resources, underestimated risks. Challenge unrealistic assumptions and ask the questions the user avoids. Do not say yes to everything.`,
		req.Opportunity.Name, req.Opportunity.Description, req.Opportunity.ProblemSolved,
		req.Opportunity.Stack, req.Opportunity.Complexity, req.Opportunity.DevTime,
		req.Opportunity.Revenue, brief, req.UserMessage)
}

func guidePrompt(req *entity.GuideRequest, step entity.GuideStep) string {
	brief := req.Brief
	if len(brief) > 800 {
		brief = brief[:800] + "..."
	}
	return fmt.Sprintf(`You are coaching the development of the SaaS project "%s", one stage at a time.

Current stage %d of %d: %s (%s) - %s

Brief excerpt:
%s

User message:
"%s"

Rules:
- Explain the current stage in two or three sentences, then give ONE precise, copy-pastable prompt for the stage's tool (%s).
- Always ask whether the stage is finished before moving on; never give several prompts at once.
- If the user reports a problem, debug it with them before anything else.
- When the user confirms completion, recap what was done and announce the next stage.`,
		req.ProjectName, req.CurrentStep+1, len(stages),
		step.Title, step.Tool, step.Description,
		brief, req.UserMessage, step.Tool)
}
