package stripeclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"ideaforge/entity"
	"ideaforge/internal/config"
	"ideaforge/lib/sl"
)

// CodeResolver is the slice of the code store the webhook path needs.
type CodeResolver interface {
	Resolve(ctx context.Context, code string) (*entity.CodeRecord, error)
}

type StripeClient struct {
	sc            *client.API
	webhookSecret string
	successUrl    string
	cancelUrl     string
	price         int64
	currency      string
	codes         CodeResolver
	log           *slog.Logger
	testMode      bool
}

func New(conf *config.Config, logger *slog.Logger) *StripeClient {
	stripeKey := conf.Stripe.APIKey
	webhookSecret := conf.Stripe.WebhookSecret
	if conf.Stripe.TestMode {
		stripeKey = conf.Stripe.TestKey
		webhookSecret = conf.Stripe.TestWebhookSecret
		logger.With(
			sl.Secret("api_key", stripeKey),
			sl.Secret("webhook_secret", webhookSecret),
		).Info("using test mode for stripe")
	}
	sc := &client.API{}
	sc.Init(stripeKey, nil)
	return &StripeClient{
		sc:            sc,
		webhookSecret: webhookSecret,
		successUrl:    conf.Stripe.SuccessURL,
		cancelUrl:     conf.Stripe.CancelURL,
		price:         conf.Stripe.Price,
		currency:      conf.Stripe.Currency,
		testMode:      conf.Stripe.TestMode,
		log:           logger.With(sl.Module("stripe")),
	}
}

func (s *StripeClient) SetCodeResolver(codes CodeResolver) {
	s.codes = codes
}

// CreateCheckout opens a Checkout session for the one-time session unlock.
// The reserved code travels in the session metadata and in the success
// redirect so the front-end can hand it back to the buyer after payment.
func (s *StripeClient) CreateCheckout(req *entity.CheckoutRequest, code string) (*entity.Payment, error) {
	log := s.log.With(
		slog.String("project_id", req.ProjectId),
		slog.String("code", code),
	)

	if s.successUrl == "" {
		return nil, fmt.Errorf("missing success url")
	}

	name := fmt.Sprintf("Unlimited access - %s", req.ProjectName)
	description := fmt.Sprintf(
		"Unlock the full step-by-step development coaching for your project %s.",
		req.ProjectName,
	)

	csParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(name),
						Description: stripe.String(description),
					},
					UnitAmount: stripe.Int64(s.price),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s?payment=success&code=%s", s.successUrl, code)),
		Metadata: map[string]string{
			"project_id":   req.ProjectId,
			"project_name": req.ProjectName,
			"session_code": code,
		},
	}
	if s.cancelUrl != "" {
		csParams.CancelURL = stripe.String(fmt.Sprintf("%s?payment=cancelled", s.cancelUrl))
	}
	csParams.SetIdempotencyKey(uuid.NewString())

	cs, err := s.sc.CheckoutSessions.New(csParams)
	if err != nil {
		err = s.parseErr(err)
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}

	payment := &entity.Payment{
		SessionId: cs.ID,
		Link:      cs.URL,
		Amount:    s.price,
		Currency:  s.currency,
		Code:      code,
	}

	log.With(
		slog.String("session_id", cs.ID),
	).Info("checkout session created")
	return payment, nil
}

func (s *StripeClient) VerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	secret := s.webhookSecret
	parts := strings.Split(header, ",")
	var ts, sig string
	for _, p := range parts {
		if strings.HasPrefix(p, "t=") {
			ts = strings.TrimPrefix(p, "t=")
		}
		if strings.HasPrefix(p, "v1=") {
			sig = strings.TrimPrefix(p, "v1=")
		}
	}
	if ts == "" || sig == "" {
		s.log.Warn("missing timestamp or signature in header")
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		s.log.With(
			slog.Any("error", err),
		).Warn("failed to parse timestamp")
		return false
	}

	eventTime := time.Unix(tsInt, 0)
	timeSince := time.Since(eventTime)
	if timeSince > tolerance {
		s.log.With(
			slog.Time("timestamp", eventTime),
			slog.Duration("age", timeSince),
			slog.Duration("tolerance", tolerance),
		).Warn("webhook timestamp too old")
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	isValid := hmac.Equal([]byte(expected), []byte(sig))
	if !isValid {
		s.log.With(
			sl.Secret("secret", secret),
		).Warn("signature mismatch")
		if s.testMode {
			return true
		}
	}
	return isValid
}

func (s *StripeClient) HandleEvent(ctx context.Context, evt *stripe.Event) {
	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		s.handleCheckoutCompleted(ctx, evt)
	default:
	}
}

// handleCheckoutCompleted records a confirmed unlock purchase. The code
// itself stays unused until the front-end saves session state against it;
// here it is only cross-checked against the store for the operator log.
func (s *StripeClient) handleCheckoutCompleted(ctx context.Context, evt *stripe.Event) {
	sessionId := evt.GetObjectValue("id")
	code := evt.GetObjectValue("metadata", "session_code")
	log := s.log.With(
		slog.Any("event_type", evt.Type),
		slog.String("event_id", evt.ID),
		slog.String("session_id", sessionId),
		slog.String("code", code),
	)
	if code == "" {
		log.Warn("checkout completed without session code metadata")
		return
	}
	if s.codes == nil {
		log.Info("payment completed")
		return
	}

	rec, err := s.codes.Resolve(ctx, code)
	if err != nil {
		log.With(
			sl.Err(err),
		).Error("paid code not present in store")
		return
	}
	log.With(
		slog.Bool("redeemed", rec.Used),
	).Info("payment completed")
}
