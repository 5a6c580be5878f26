package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (r *Repository) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	query := `SELECT id, title, price, currency, image, seller_id, disabled, created_at
	          FROM listings WHERE id = $1`

	var l domain.Listing
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID,
		&l.Title,
		&l.Price,
		&l.Currency,
		&l.Image,
		&l.SellerID,
		&l.Disabled,
		&l.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query listing by id: %w", err)
	}
	return &l, nil
}

// SetListingDisabled flips the catalog flag. The catalog service owns listings; this exists for
// local development and tests.
func (r *Repository) SetListingDisabled(ctx context.Context, id string, disabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE listings SET disabled = $1 WHERE id = $2`, disabled, id)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrListingNotFound
	}
	return nil
}
