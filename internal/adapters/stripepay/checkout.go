package stripepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

const currency = "usd"

var ErrSignature = errors.New("stripe: webhook signature verification failed")

// Provider creates hosted checkout sessions and verifies Stripe webhooks.
type Provider struct {
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Provider {
	stripe.Key = secretKey
	return &Provider{webhookSecret: webhookSecret}
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(li.Name)}
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	start := time.Now()
	s, err := session.New(params)
	observability.ObserveExternal("stripe", "checkout.sessions.create", statusOf(err), time.Since(start))
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return domain.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *Provider) GetCheckoutSession(ctx context.Context, sessionID string) (domain.PaymentStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	start := time.Now()
	s, err := session.Get(sessionID, params)
	observability.ObserveExternal("stripe", "checkout.sessions.retrieve", statusOf(err), time.Since(start))
	if err != nil {
		return domain.PaymentStatus{}, fmt.Errorf("get checkout session %s: %w", sessionID, err)
	}
	return paymentStatus(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and maps checkout events.
// Events this service does not act on come back as PaymentIgnored.
func (p *Provider) ParseWebhook(payload []byte, signature string) (domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	var kind domain.PaymentEventType
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		kind = domain.PaymentSucceeded
	case stripe.EventTypeCheckoutSessionExpired, stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		kind = domain.PaymentExpired
	default:
		log.Debug().Str("type", string(event.Type)).Msg("stripe event ignored")
		return domain.PaymentEvent{Type: domain.PaymentIgnored}, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("decode %s: %w", event.Type, err)
	}
	st := paymentStatus(&s)
	if kind == domain.PaymentSucceeded && !st.Paid {
		// completed with a delayed payment method; wait for async_payment_succeeded
		kind = domain.PaymentIgnored
	}
	return domain.PaymentEvent{Type: kind, Status: st}, nil
}

func paymentStatus(s *stripe.CheckoutSession) domain.PaymentStatus {
	st := domain.PaymentStatus{
		SessionID: s.ID,
		BookingID: s.Metadata["bookingId"],
		Paid:      s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Method:    "card",
	}
	if len(s.PaymentMethodTypes) > 0 {
		st.Method = s.PaymentMethodTypes[0]
	}
	if s.PaymentIntent != nil {
		st.PaymentID = s.PaymentIntent.ID
	}
	return st
}

func statusOf(err error) int {
	if err == nil {
		return 200
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode
	}
	return 0
}
