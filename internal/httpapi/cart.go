package httpapi

import (
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartSessionHeader names the device-local cart. Signed-in callers without one share a
// per-user cart.
const CartSessionHeader = "X-Cart-Session"

type AddCartItemRequestDTO struct {
	ListingID string `json:"listing_id"`
}

type CartMutationDTO struct {
	ListingID string `json:"listing_id"`
	Changed   bool   `json:"changed"`
}

func cartNamespace(r *http.Request, identity domain.Identity) string {
	if ns := strings.TrimSpace(r.Header.Get(CartSessionHeader)); ns != "" {
		return ns
	}
	if identity.IsAuthenticated() {
		return "user:" + identity.UserID
	}
	return ""
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	view, err := s.deps.Cart.View(r.Context(), identity, cartNamespace(r, identity))
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) getReserved(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Reservations.Entries(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	if entries == nil {
		entries = []domain.ReservedCartEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	ns := cartNamespace(r, identity)
	if ns == "" {
		respondError(w, http.StatusBadRequest, "cart_session_required", CartSessionHeader+" header is required")
		return
	}

	var req AddCartItemRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ListingID == "" {
		respondError(w, http.StatusBadRequest, "invalid_listing_id", "listing_id is required")
		return
	}

	added, err := s.deps.Cart.Add(r.Context(), ns, req.ListingID)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	respondJSON(w, status, CartMutationDTO{ListingID: req.ListingID, Changed: added})
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	ns := cartNamespace(r, identity)
	if ns == "" {
		respondError(w, http.StatusBadRequest, "cart_session_required", CartSessionHeader+" header is required")
		return
	}

	listingID := chi.URLParam(r, "listingID")
	removed, err := s.deps.Cart.Remove(r.Context(), identity, ns, listingID)
	if err != nil {
		handleServiceError(w, s.log, err)
		return
	}
	respondJSON(w, http.StatusOK, CartMutationDTO{ListingID: listingID, Changed: removed})
}
