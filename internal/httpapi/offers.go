package httpapi

import (
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/offer"
	"github.com/go-chi/chi/v5"
)

type SubmitOfferRequestDTO struct {
	ListingID string  `json:"listing_id"`
	Amount    float64 `json:"amount"`
}

type CounterOfferRequestDTO struct {
	Amount float64 `json:"amount"`
}

type OfferDetailDTO struct {
	*domain.Offer
	Warning offer.Warning `json:"warning,omitempty"`
}

// parseStatuses reads ?status=pending,countered. Unknown values are a client error.
func parseStatuses(r *http.Request) ([]domain.OfferStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}
	var statuses []domain.OfferStatus
	for _, part := range strings.Split(raw, ",") {
		s := domain.OfferStatus(strings.TrimSpace(part))
		if !s.Valid() {
			return nil, false
		}
		statuses = append(statuses, s)
	}
	return statuses, true
}

func (s *Server) listOffers(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	statuses, ok := parseStatuses(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown offer status")
		return
	}
	if !identity.IsAuthenticated() {
		respondJSON(w, http.StatusOK, []*domain.Offer{})
		return
	}

	offers, err := s.deps.Offers.ListMine(r.Context(), identity, statuses...)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	if offers == nil {
		offers = []*domain.Offer{}
	}
	respondJSON(w, http.StatusOK, offers)
}

func (s *Server) listSellerOffers(w http.ResponseWriter, r *http.Request) {
	statuses, ok := parseStatuses(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown offer status")
		return
	}
	offers, err := s.deps.Offers.ListForSeller(r.Context(), auth.FromContext(r.Context()), statuses...)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	if offers == nil {
		offers = []*domain.Offer{}
	}
	respondJSON(w, http.StatusOK, offers)
}

func (s *Server) submitOffer(w http.ResponseWriter, r *http.Request) {
	var req SubmitOfferRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ListingID == "" {
		respondError(w, http.StatusBadRequest, "invalid_listing_id", "listing_id is required")
		return
	}

	o, err := s.deps.Offers.Submit(r.Context(), auth.FromContext(r.Context()), req.ListingID, req.Amount)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	o, warning, err := s.deps.Offers.Detail(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, OfferDetailDTO{Offer: o, Warning: warning})
}

func (s *Server) counterOffer(w http.ResponseWriter, r *http.Request) {
	var req CounterOfferRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := s.deps.Offers.Counter(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) acceptOffer(w http.ResponseWriter, r *http.Request) {
	o, err := s.deps.Offers.Accept(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) rejectOffer(w http.ResponseWriter, r *http.Request) {
	o, err := s.deps.Offers.Reject(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
