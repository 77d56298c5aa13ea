package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"ideaforge/entity"
	"ideaforge/internal/codestore"
	"ideaforge/lib/sl"
)

// Payments is the slice of the Stripe client the core depends on.
type Payments interface {
	CreateCheckout(req *entity.CheckoutRequest, code string) (*entity.Payment, error)
	VerifySignature(payload []byte, header string, tolerance time.Duration) bool
	HandleEvent(ctx context.Context, evt *stripe.Event)
}

// Advisor is the slice of the LLM relay the core depends on.
type Advisor interface {
	Search(ctx context.Context, criteria *entity.SearchCriteria) ([]*entity.Opportunity, error)
	Brief(ctx context.Context, req *entity.BriefRequest) (string, error)
	Chat(ctx context.Context, req *entity.ChatRequest) (string, error)
	Guide(ctx context.Context, req *entity.GuideRequest) (*entity.GuideReply, error)
}

type Core struct {
	store    codestore.Store
	payments Payments
	advisor  Advisor
	log      *slog.Logger
}

func New(store codestore.Store, log *slog.Logger) *Core {
	if store == nil {
		panic("code store is nil")
	}
	return &Core{
		store: store,
		log:   log.With(sl.Module("core")),
	}
}

func (c *Core) SetPayments(payments Payments) {
	c.payments = payments
}

func (c *Core) SetAdvisor(advisor Advisor) {
	c.advisor = advisor
}

// AllocateCode reserves an unused code for a new purchase.
func (c *Core) AllocateCode(ctx context.Context) (string, error) {
	return c.store.Allocate(ctx)
}

// SaveSession attaches project and chat state to a code.
func (c *Core) SaveSession(ctx context.Context, state *entity.SessionState) (*entity.CodeRecord, error) {
	return c.store.SaveSession(ctx, state)
}

// ResolveCode turns a user-typed code into the session view. An unknown
// code is an ordinary outcome, not an error: the view reports valid=false.
func (c *Core) ResolveCode(ctx context.Context, code string) (*entity.SessionView, error) {
	rec, err := c.store.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, codestore.ErrNotFound) {
			return entity.NewSessionView(nil), nil
		}
		return nil, err
	}
	return entity.NewSessionView(rec), nil
}

// CreateCheckout reserves a code and opens the Stripe Checkout session for
// it. When no codes are left the purchase flow gets a hard stop. A code
// reserved for a checkout that is later abandoned simply stays unused;
// reservation does not consume it.
func (c *Core) CreateCheckout(ctx context.Context, req *entity.CheckoutRequest) (*entity.Payment, error) {
	if c.payments == nil {
		return nil, fmt.Errorf("payment service not connected")
	}
	code, err := c.store.Allocate(ctx)
	if err != nil {
		return nil, err
	}
	payment, err := c.payments.CreateCheckout(req, code)
	if err != nil {
		c.log.With(
			slog.String("code", code),
			sl.Err(err),
		).Warn("checkout failed after code reservation, code stays unused")
		return nil, err
	}
	return payment, nil
}

func (c *Core) StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	if c.payments == nil {
		return false
	}
	return c.payments.VerifySignature(payload, header, tolerance)
}

func (c *Core) StripeEvent(ctx context.Context, evt *stripe.Event) {
	if c.payments == nil {
		return
	}
	c.payments.HandleEvent(ctx, evt)
}

func (c *Core) SearchOpportunities(ctx context.Context, criteria *entity.SearchCriteria) ([]*entity.Opportunity, error) {
	if c.advisor == nil {
		return nil, fmt.Errorf("advisor service not connected")
	}
	return c.advisor.Search(ctx, criteria)
}

func (c *Core) GenerateBrief(ctx context.Context, req *entity.BriefRequest) (string, error) {
	if c.advisor == nil {
		return "", fmt.Errorf("advisor service not connected")
	}
	return c.advisor.Brief(ctx, req)
}

func (c *Core) ProjectChat(ctx context.Context, req *entity.ChatRequest) (string, error) {
	if c.advisor == nil {
		return "", fmt.Errorf("advisor service not connected")
	}
	return c.advisor.Chat(ctx, req)
}

func (c *Core) DevelopmentGuide(ctx context.Context, req *entity.GuideRequest) (*entity.GuideReply, error) {
	if c.advisor == nil {
		return nil, fmt.Errorf("advisor service not connected")
	}
	return c.advisor.Guide(ctx, req)
}
