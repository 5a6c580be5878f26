package httpapi

import (
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Checkout requires a signed-in caller. The check happens here, before the cart and its
// reservations are read.
func (s *Server) checkoutIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	identity := auth.FromContext(r.Context())
	if !identity.IsAuthenticated() {
		respondError(w, http.StatusUnauthorized, "sign_in_required", "please sign in to check out")
		return identity, false
	}
	return identity, true
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.checkoutIdentity(w, r)
	if !ok {
		return
	}
	var req domain.CheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Checkout.CreateRedirectSession(r.Context(), identity, cartNamespace(r, identity), req)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.checkoutIdentity(w, r)
	if !ok {
		return
	}
	var req domain.CheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Checkout.CreateProviderOrder(r.Context(), identity, cartNamespace(r, identity), req)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) captureOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.checkoutIdentity(w, r)
	if !ok {
		return
	}

	result, err := s.deps.Checkout.CaptureProviderOrder(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
