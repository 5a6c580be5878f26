package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notification"
	"github.com/fjod/go_cart/storefront/internal/offer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type OfferService interface {
	Submit(ctx context.Context, actor domain.Identity, listingID string, amount float64) (*domain.Offer, error)
	Counter(ctx context.Context, actor domain.Identity, offerID string, amount float64) (*domain.Offer, error)
	Accept(ctx context.Context, actor domain.Identity, offerID string) (*domain.Offer, error)
	Reject(ctx context.Context, actor domain.Identity, offerID string) (*domain.Offer, error)
	ListMine(ctx context.Context, actor domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error)
	ListForSeller(ctx context.Context, actor domain.Identity, statuses ...domain.OfferStatus) ([]*domain.Offer, error)
	Detail(ctx context.Context, actor domain.Identity, offerID string) (*domain.Offer, offer.Warning, error)
}

type CartService interface {
	View(ctx context.Context, identity domain.Identity, ns string) (cart.View, error)
	Add(ctx context.Context, ns, listingID string) (bool, error)
	Remove(ctx context.Context, identity domain.Identity, ns, listingID string) (bool, error)
}

type ReservationReader interface {
	Entries(ctx context.Context, identity domain.Identity) ([]domain.ReservedCartEntry, error)
}

type ConversationService interface {
	ListConversations(ctx context.Context, identity domain.Identity) ([]*domain.Conversation, error)
	UnreadCount(ctx context.Context, identity domain.Identity) (int64, error)
	Start(ctx context.Context, identity domain.Identity, listingID, withUserID string) (*domain.Conversation, error)
	Send(ctx context.Context, identity domain.Identity, conversationID, text string) (*domain.ConversationMessage, error)
	Messages(ctx context.Context, identity domain.Identity, conversationID string) ([]domain.ConversationMessage, error)
	MarkRead(ctx context.Context, identity domain.Identity, conversationID string) error
}

type FeedSource interface {
	Aggregate(ctx context.Context, identity domain.Identity) notification.Feed
}

type CheckoutService interface {
	CreateRedirectSession(ctx context.Context, identity domain.Identity, ns string, req domain.CheckoutRequest) (*checkout.SessionResult, error)
	CreateProviderOrder(ctx context.Context, identity domain.Identity, ns string, req domain.CheckoutRequest) (*checkout.OrderResult, error)
	CaptureProviderOrder(ctx context.Context, identity domain.Identity, orderID string) (*checkout.CaptureResult, error)
}

type Deps struct {
	Offers        OfferService
	Cart          CartService
	Reservations  ReservationReader
	Conversations ConversationService
	Notifications FeedSource
	Checkout      CheckoutService
	Tokens        *auth.Tokens
}

type Config struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Server struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger
}

func NewServer(deps Deps, cfg Config, log zerolog.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20 // 1MB
	}
	return &Server{deps: deps, cfg: cfg, log: log.With().Str("component", "http").Logger()}
}

// Handler builds the chi router wrapped in the otel handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth.Middleware(s.deps.Tokens, s.log))
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(maxBody(s.cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/offers", func(r chi.Router) {
			r.Get("/", s.listOffers)
			r.Post("/", s.submitOffer)
			r.Get("/{id}", s.getOffer)
			r.Post("/{id}/counter", s.counterOffer)
			r.Post("/{id}/accept", s.acceptOffer)
			r.Post("/{id}/reject", s.rejectOffer)
		})
		r.Get("/admin/offers", s.listSellerOffers)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.getCart)
			r.Get("/reserved", s.getReserved)
			r.Post("/items", s.addCartItem)
			r.Delete("/items/{listingID}", s.removeCartItem)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.listConversations)
			r.Post("/", s.startConversation)
			r.Get("/{id}/messages", s.listMessages)
			r.Post("/{id}/messages", s.sendMessage)
			r.Post("/{id}/read", s.markRead)
		})
		r.Get("/messages/unread-count", s.unreadCount)
		r.Get("/notifications", s.notifications)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/session", s.createSession)
			r.Post("/orders", s.createOrder)
			r.Post("/orders/{id}/capture", s.captureOrder)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}

func maxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				ev := log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start))
				if identity := auth.FromContext(r.Context()); identity.IsAuthenticated() {
					ev = ev.Str("user_id", identity.UserID)
				} else if auth.TokenRejected(r.Context()) {
					// expired or forged sessions browse anonymously
					ev = ev.Bool("token_rejected", true)
				}
				ev.Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
