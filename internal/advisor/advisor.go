// Package advisor relays the coaching flows to an OpenAI-compatible
// chat-completions endpoint. It builds prompts and passes responses
// through; all generation is delegated to the hosted model.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ideaforge/entity"
	"ideaforge/internal/config"
	"ideaforge/lib/sl"
)

type Client struct {
	api   openai.Client
	model string
	log   *slog.Logger
}

func New(conf *config.Config, logger *slog.Logger) *Client {
	api := openai.NewClient(
		option.WithAPIKey(conf.Advisor.APIKey),
		option.WithBaseURL(conf.Advisor.BaseURL),
		option.WithMaxRetries(3),
	)
	return &Client{
		api:   api,
		model: conf.Advisor.Model,
		log:   logger.With(sl.Module("advisor")),
	}
}

// Search asks the model for replicable SaaS opportunities matching the
// criteria and parses the JSON list out of the reply.
func (c *Client) Search(ctx context.Context, criteria *entity.SearchCriteria) ([]*entity.Opportunity, error) {
	content, err := c.complete(ctx, completion{
		system:      "You are a market researcher for indie SaaS products. You only report opportunities with verifiable, documented revenue.",
		prompt:      searchPrompt(criteria),
		temperature: 0.7,
		maxTokens:   3000,
	})
	if err != nil {
		return nil, err
	}
	opportunities, err := parseOpportunities(content)
	if err != nil {
		c.log.With(sl.Err(err)).Error("parse search response")
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	c.log.With(
		slog.Int("count", len(opportunities)),
	).Debug("opportunity search completed")
	return opportunities, nil
}

// Brief generates the requirements document for a chosen opportunity.
func (c *Client) Brief(ctx context.Context, req *entity.BriefRequest) (string, error) {
	return c.complete(ctx, completion{
		system:      "You are a senior product architect. You write complete, structured requirements documents for SaaS products, with clear sections and concrete technical choices.",
		prompt:      briefPrompt(req.Opportunity),
		temperature: 0.3,
		maxTokens:   4000,
	})
}

// Chat is one turn of the critical project review conversation.
func (c *Client) Chat(ctx context.Context, req *entity.ChatRequest) (string, error) {
	return c.complete(ctx, completion{
		system:      "You are a critical, objective reviewer of SaaS projects. You challenge unrealistic plans, point out real difficulties, and never agree just to please.",
		prompt:      chatPrompt(req),
		history:     trimHistory(req.Messages, 4),
		temperature: 0.3,
		maxTokens:   800,
	})
}

// Guide is one turn of the scripted development coaching flow.
func (c *Client) Guide(ctx context.Context, req *entity.GuideRequest) (*entity.GuideReply, error) {
	step, ok := StageAt(req.CurrentStep)
	if !ok {
		return nil, fmt.Errorf("unknown development stage %d", req.CurrentStep)
	}
	reply, err := c.complete(ctx, completion{
		system:      "You are an expert SaaS development coach specialized in Cursor and v0.dev. You produce precise, actionable prompts, adapt to the tool in use, and guide one step at a time.",
		prompt:      guidePrompt(req, step),
		history:     trimHistory(req.Messages, 4),
		temperature: 0.2,
		maxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	completed := stepCompleted(req.UserMessage)
	next := req.CurrentStep
	if completed && req.CurrentStep+1 < len(stages) {
		next = req.CurrentStep + 1
	}
	return &entity.GuideReply{
		Reply:         reply,
		Step:          step,
		StepCompleted: completed,
		NextStep:      next,
	}, nil
}

type completion struct {
	system      string
	prompt      string
	history     []entity.ChatMessage
	temperature float64
	maxTokens   int64
}

func (c *Client) complete(ctx context.Context, req completion) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.history)+2)
	messages = append(messages, openai.SystemMessage(req.system))
	for _, msg := range req.history {
		if msg.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.prompt))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.temperature),
		MaxTokens:   openai.Int(req.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// trimHistory keeps the last n turns for context; the user message itself
// travels in the prompt.
func trimHistory(messages []entity.ChatMessage, n int) []entity.ChatMessage {
	if len(messages) > 0 {
		messages = messages[:len(messages)-1]
	}
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	return messages
}

func stepCompleted(userMessage string) bool {
	m := strings.ToLower(userMessage)
	return strings.Contains(m, "next step") ||
		strings.Contains(m, "done") ||
		strings.Contains(m, "finished")
}
