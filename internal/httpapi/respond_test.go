package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/offer"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthorized", fmt.Errorf("failed to list: %w", domain.ErrUnauthorized), http.StatusUnauthorized, "sign_in_required"},
		{"forbidden", offer.ErrForbidden, http.StatusForbidden, "permission_denied"},
		{"own listing", offer.ErrOwnListing, http.StatusForbidden, "own_listing"},
		{"invalid amount", offer.ValidateAmount(-1, 0), http.StatusBadRequest, "invalid_amount"},
		{"empty cart", checkout.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
		{"offer not found", offer.ErrOfferNotFound, http.StatusNotFound, "not_found"},
		{"reserved", offer.ErrListingReserved, http.StatusConflict, "listing_reserved"},
		{"busy", offer.ErrOfferBusy, http.StatusConflict, "offer_busy"},
		{"illegal transition", offer.ErrIllegalTransition, http.StatusConflict, "illegal_transition"},
		{"locked", cart.ErrItemLocked, http.StatusConflict, "item_locked"},
		{"mismatch", checkout.ErrCartMismatch, http.StatusConflict, "cart_mismatch"},
		{"rate limited", offer.ErrRateLimited, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"declined", payment.ErrDeclined, http.StatusPaymentRequired, "payment_declined"},
		{"provider down", payment.ErrProviderUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, zerolog.Nop(), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestHandleServiceError_InternalErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, zerolog.Nop(), errors.New("pq: connection refused"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed, please try again", resp.Error)
	assert.NotContains(t, resp.Error, "pq")
}

func TestRequestLogger_RecordsRejectedToken(t *testing.T) {
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	valid, err := tokens.Issue("buyer-1", domain.RoleBuyer)
	require.NoError(t, err)

	var buf bytes.Buffer
	handler := auth.Middleware(tokens, zerolog.Nop())(
		requestLogger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})),
	)

	tests := []struct {
		name     string
		token    string
		wantKey  string
		wantNone string
	}{
		{name: "rejected token", token: "not-a-jwt", wantKey: `"token_rejected":true`, wantNone: `"user_id"`},
		{name: "valid token", token: valid, wantKey: `"user_id":"buyer-1"`, wantNone: `"token_rejected"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Contains(t, buf.String(), tt.wantKey)
			assert.NotContains(t, buf.String(), tt.wantNone)
		})
	}
}
