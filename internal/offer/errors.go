package offer

import (
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
)

var (
	ErrInvalidAmount      = errors.New("invalid offer amount")
	ErrListingUnavailable = errors.New("listing is not available for offers")
	ErrOwnListing         = errors.New("cannot make an offer on your own listing")
	ErrForbidden          = errors.New("not allowed to act on this offer")
	ErrIllegalTransition  = errors.New("offer cannot move to the requested status")
	ErrOfferBusy          = errors.New("an update for this offer is already in progress")
	ErrRateLimited        = errors.New("too many offers, slow down")

	ErrUnauthorized      = domain.ErrUnauthorized
	ErrListingNotFound   = repository.ErrListingNotFound
	ErrOfferNotFound     = repository.ErrOfferNotFound
	ErrActiveOfferExists = repository.ErrActiveOfferExists
	ErrListingReserved   = repository.ErrListingReserved
	ErrConcurrentUpdate  = repository.ErrConcurrentUpdate
)
