package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/conversation"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/offer"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleServiceError maps service sentinels to HTTP statuses. Anything unknown is a 500.
func handleServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		status  int
		code    string
		message = err.Error()
		details string
	)

	var incomplete *checkout.IncompleteAddressError

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "sign_in_required", "please sign in to continue"
	case errors.Is(err, offer.ErrForbidden), errors.Is(err, conversation.ErrNotParticipant):
		status, code = http.StatusForbidden, "permission_denied"
	case errors.Is(err, offer.ErrOwnListing):
		status, code = http.StatusForbidden, "own_listing"

	case errors.Is(err, offer.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.As(err, &incomplete):
		status, code, message = http.StatusBadRequest, "incomplete_address", checkout.ErrIncompleteAddress.Error()
		details = strings.Join(incomplete.Missing, ",")
	case errors.Is(err, checkout.ErrEmptyCart):
		status, code = http.StatusBadRequest, "empty_cart"
	case errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, conversation.ErrMessageTooLong),
		errors.Is(err, conversation.ErrSelfConversation):
		status, code = http.StatusBadRequest, "invalid_argument"

	case errors.Is(err, offer.ErrListingNotFound),
		errors.Is(err, offer.ErrOfferNotFound),
		errors.Is(err, conversation.ErrConversationNotFound),
		errors.Is(err, checkout.ErrOrderNotFound),
		errors.Is(err, payment.ErrOrderNotFound):
		status, code = http.StatusNotFound, "not_found"

	case errors.Is(err, offer.ErrActiveOfferExists):
		status, code = http.StatusConflict, "active_offer_exists"
	case errors.Is(err, offer.ErrListingReserved):
		status, code = http.StatusConflict, "listing_reserved"
	case errors.Is(err, offer.ErrOfferBusy), errors.Is(err, offer.ErrConcurrentUpdate):
		status, code = http.StatusConflict, "offer_busy"
	case errors.Is(err, offer.ErrIllegalTransition):
		status, code = http.StatusConflict, "illegal_transition"
	case errors.Is(err, offer.ErrListingUnavailable), errors.Is(err, cart.ErrListingUnavailable):
		status, code = http.StatusConflict, "listing_unavailable"
	case errors.Is(err, cart.ErrItemLocked):
		status, code = http.StatusConflict, "item_locked"
	case errors.Is(err, checkout.ErrCartMismatch):
		status, code = http.StatusConflict, "cart_mismatch"

	case errors.Is(err, offer.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limit_exceeded"
	case errors.Is(err, payment.ErrDeclined):
		status, code = http.StatusPaymentRequired, "payment_declined"
	case errors.Is(err, payment.ErrProviderUnavailable):
		status, code, message = http.StatusServiceUnavailable, "service_unavailable", "payment provider unavailable, please try again"
	case errors.Is(err, context.DeadlineExceeded):
		status, code, message = http.StatusGatewayTimeout, "timeout", "request timed out, please try again"

	default:
		log.Error().Err(err).Msg("request failed")
		status, code, message = http.StatusInternalServerError, "internal_error", "failed, please try again"
	}

	respondJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}
