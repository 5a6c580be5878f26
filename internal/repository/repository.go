package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrOfferNotFound     = errors.New("offer not found")
	ErrActiveOfferExists = errors.New("an active offer for this listing already exists")
	ErrListingReserved   = errors.New("listing is already reserved")
	ErrConcurrentUpdate  = errors.New("offer was modified concurrently")
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Credentials struct {
	Driver            string
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SQLitePath        string
	MigrationsDirPath string
}

// OfferFilter selects offers by party. Empty Statuses means any status.
type OfferFilter struct {
	BuyerID  string
	SellerID string
	Statuses []domain.OfferStatus
}

// OfferTransition describes one state change applied atomically.
// Offer carries the new state; From is the status the row must still have.
type OfferTransition struct {
	Offer              *domain.Offer
	From               domain.OfferStatus
	Message            domain.OfferMessage
	Reservation        *domain.ReservedCartEntry
	ReleaseReservation bool
}

type OutboxEvent struct {
	ID          int64
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type ListingRepository interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

type OfferRepository interface {
	CreateOffer(ctx context.Context, offer *domain.Offer) error
	GetOffer(ctx context.Context, id string) (*domain.Offer, error)
	FindActiveOffer(ctx context.Context, listingID, buyerID string) (*domain.Offer, error)
	ListOffers(ctx context.Context, filter OfferFilter) ([]*domain.Offer, error)
	TransitionOffer(ctx context.Context, t OfferTransition) error
}

type ReservationRepository interface {
	ListActiveReservations(ctx context.Context, buyerID string, now time.Time) ([]domain.ReservedCartEntry, error)
	ExpireReservations(ctx context.Context, now time.Time) ([]domain.ReservedCartEntry, error)
	CompleteReservations(ctx context.Context, buyerID string, listingIDs []string, now time.Time) error
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// RepoInterface is everything the storefront binary needs from the database.
type RepoInterface interface {
	ListingRepository
	OfferRepository
	ReservationRepository
	OutboxRepository
	RunMigrations(*Credentials) error
	Close() error
}
