package cart

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Common errors returned by the store
var (
	ErrItemLocked  = errors.New("item is reserved by an accepted offer and cannot be removed")
	ErrInvalidItem = errors.New("cart item must have an id")
)

// LockChecker reports whether a listing id is currently held by a reservation for the cart owner.
type LockChecker interface {
	IsLocked(ctx context.Context, id string) (bool, error)
}

type LockCheckerFunc func(ctx context.Context, id string) (bool, error)

func (f LockCheckerFunc) IsLocked(ctx context.Context, id string) (bool, error) {
	return f(ctx, id)
}

// LocalStore is the device-local cart, one ordered set of items per namespace.
type LocalStore interface {
	// Add appends item unless an item with the same id is already present.
	// Lock flags are stripped; only reservations produce locked items.
	Add(ctx context.Context, ns string, item domain.CartItem) (bool, error)

	// Remove deletes id from the namespace. When lock reports the id as locked nothing is
	// removed and ErrItemLocked is returned. A nil lock treats every id as unlocked.
	Remove(ctx context.Context, ns, id string, lock LockChecker) (bool, error)

	// List returns items in insertion order.
	List(ctx context.Context, ns string) ([]domain.CartItem, error)

	Contains(ctx context.Context, ns, id string) (bool, error)

	// Close shuts down the store and any background processes
	Close() error
}

func sanitize(item domain.CartItem) (domain.CartItem, error) {
	if item.ID == "" {
		return item, ErrInvalidItem
	}
	item.IsLocked = false
	item.OfferID = nil
	if item.Currency == "" {
		item.Currency = domain.DefaultCurrency
	}
	return item, nil
}

func checkLock(ctx context.Context, lock LockChecker, id string) error {
	if lock == nil {
		return nil
	}
	locked, err := lock.IsLocked(ctx, id)
	if err != nil {
		return err
	}
	if locked {
		return ErrItemLocked
	}
	return nil
}
