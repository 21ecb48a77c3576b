package api

import (
	"io"
	"net/http"

	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rpupo63/client-project-portal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stripe caps event payloads well below this.
const maxWebhookBytes = 65536

type checkoutHandler struct {
	responder Responder
	logger    zerolog.Logger
	checkout  *services.CheckoutService
}

func newCheckoutHandler(checkout *services.CheckoutService) checkoutHandler {
	logger := log.With().Str("handlerName", "checkoutHandler").Logger()

	return checkoutHandler{
		responder: NewResponder(logger),
		logger:    logger,
		checkout:  checkout,
	}
}

// startCheckout opens a Stripe Checkout session for the caller
// @Summary Start checkout
// @Tags Payments
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} Envelope "Session URL and project id"
// @Router /projects/{projectID}/checkout [post]
func (h checkoutHandler) startCheckout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := projectIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.checkout.StartCheckout(r.Context(), projectID, requesterFrom(r.Context()))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Checkout session created", result)
	}
}

func (h checkoutHandler) stripeWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to read webhook body")
			h.responder.WriteError(w, errs.NewMalformedPayloadError("webhook", err))
			return
		}

		if err := h.checkout.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteSuccess(w, http.StatusOK, "Webhook received", map[string]bool{"received": true})
	}
}
