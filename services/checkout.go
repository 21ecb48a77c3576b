package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/webhook"
)

var ErrCheckoutDisabled = errors.New("payments not configured")

// SessionCreator opens Stripe Checkout sessions. session.Client satisfies it.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type CheckoutConfig struct {
	SecretKey     string
	WebhookSecret string
	// SuccessURL and CancelURL may contain {PROJECT_ID}.
	SuccessURL string
	CancelURL  string
	Currency   string
}

type CheckoutService struct {
	projects *ProjectService
	sessions SessionCreator
	cfg      CheckoutConfig
	logger   zerolog.Logger
}

// NewCheckoutService talks to Stripe with the configured secret key. Without
// one, checkout is disabled and webhooks are rejected.
func NewCheckoutService(projects *ProjectService, cfg CheckoutConfig) *CheckoutService {
	var sessions SessionCreator
	if cfg.SecretKey != "" {
		sessions = session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey}
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, checkout is disabled")
	}
	return NewCheckoutServiceWithSessions(projects, sessions, cfg)
}

func NewCheckoutServiceWithSessions(projects *ProjectService, sessions SessionCreator, cfg CheckoutConfig) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	return &CheckoutService{
		projects: projects,
		sessions: sessions,
		cfg:      cfg,
		logger:   log.With().Str("service", "checkout").Logger(),
	}
}

type CheckoutResult struct {
	URL       string    `json:"url"`
	SessionID string    `json:"sessionId"`
	ProjectID uuid.UUID `json:"projectId"`
}

// StartCheckout gives the requester their own copy of the project, briefing
// included, and opens a payment session for it. A requester who already owns
// the project pays for it directly.
func (c *CheckoutService) StartCheckout(ctx context.Context, sourceID uuid.UUID, who Requester) (*CheckoutResult, error) {
	if who.Email == "" {
		return nil, errs.Unauthorized
	}
	if c.sessions == nil {
		return nil, errs.NewInternalErrorWithCause("Payments are not available", ErrCheckoutDisabled)
	}

	p, err := c.projects.Duplicate(ctx, DuplicateInput{
		SourceID:     sourceID,
		ClientEmail:  who.Email,
		ClientUserID: who.UserID,
		CopyBriefing: true,
	})
	switch {
	case errs.IsAlreadyOwned(err):
		if p, err = c.projects.Get(ctx, sourceID); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case p == nil:
		return nil, errs.NewNotFoundError("Project not found")
	}

	if p.IsPaid() {
		return nil, errs.BadRequest("Project is already paid")
	}
	price := p.Price()
	if price <= 0 {
		return nil, errs.NewInvalidFieldError("price", "Project has no price to charge")
	}

	projectID := p.ID.String()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withProjectID(c.cfg.SuccessURL, projectID)),
		CancelURL:         stripe.String(withProjectID(c.cfg.CancelURL, projectID)),
		CustomerEmail:     stripe.String(who.Email),
		ClientReferenceID: stripe.String(projectID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.cfg.Currency),
				UnitAmount: stripe.Int64(int64(math.Round(price * 100))),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(productName(p)),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"project_id": projectID},
		},
	}
	params.AddMetadata("project_id", projectID)

	sess, err := c.sessions.New(params)
	if err != nil {
		c.logger.Error().Err(err).Str("projectId", projectID).Msg("failed to create checkout session")
		return nil, errs.NewInternalErrorWithCause("Failed to start checkout", err)
	}
	c.logger.Info().Str("projectId", projectID).Str("sessionId", sess.ID).Float64("price", price).Msg("checkout session created")
	return &CheckoutResult{URL: sess.URL, SessionID: sess.ID, ProjectID: p.ID}, nil
}

func withProjectID(url, projectID string) string {
	return strings.ReplaceAll(url, "{PROJECT_ID}", projectID)
}

func productName(p *models.Project) string {
	if p.ServiceName != "" {
		return p.Name + " – " + p.ServiceName
	}
	return p.Name
}

// HandleWebhook verifies a Stripe event and marks the project of a completed
// checkout as paid. Only a bad signature is an error; everything else is
// logged and acknowledged.
func (c *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if c.cfg.WebhookSecret == "" {
		return errs.NewInternalErrorWithCause("Payments are not available", ErrCheckoutDisabled)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("rejected webhook")
		return errs.NewBadRequestError("Invalid webhook signature")
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		c.logger.Debug().Str("eventType", string(event.Type)).Msg("ignoring webhook event")
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		c.logger.Error().Err(err).Str("eventId", event.ID).Msg("malformed checkout session")
		return nil
	}
	raw := sess.Metadata["project_id"]
	if raw == "" {
		raw = sess.ClientReferenceID
	}
	projectID, err := uuid.Parse(raw)
	if err != nil {
		c.logger.Warn().Str("eventId", event.ID).Str("projectId", raw).Msg("checkout session without a valid project_id")
		return nil
	}
	paymentID := ""
	if sess.PaymentIntent != nil {
		paymentID = sess.PaymentIntent.ID
	}

	if _, err := c.projects.MarkPaid(ctx, projectID, paymentID); err != nil {
		c.logger.Error().Err(err).Str("eventId", event.ID).Str("projectId", raw).Msg("failed to mark project paid")
		return nil
	}
	return nil
}
