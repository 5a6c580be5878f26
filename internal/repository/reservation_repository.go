package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ListActiveReservations returns the buyer's unexpired active reservations, oldest first.
func (r *Repository) ListActiveReservations(ctx context.Context, buyerID string, now time.Time) ([]domain.ReservedCartEntry, error) {
	query := `SELECT r.listing_id, r.offer_id, r.buyer_id, l.title, l.image, r.price, r.currency, r.created_at, r.expires_at
	          FROM reservations r
	          JOIN listings l ON l.id = r.listing_id
	          WHERE r.buyer_id = $1 AND r.status = $2 AND r.expires_at > $3
	          ORDER BY r.created_at, r.listing_id`

	rows, err := r.db.QueryContext(ctx, query, buyerID, domain.ReservationActive, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	entries := []domain.ReservedCartEntry{}
	for rows.Next() {
		var e domain.ReservedCartEntry
		if err := rows.Scan(
			&e.ListingID,
			&e.OfferID,
			&e.BuyerID,
			&e.Title,
			&e.Image,
			&e.Price,
			&e.Currency,
			&e.CreatedAt,
			&e.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		e.IsLocked = true
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// ExpireReservations moves every lapsed active reservation to expired and queues a
// reservation.expired event for each, returning the entries it expired.
func (r *Repository) ExpireReservations(ctx context.Context, now time.Time) ([]domain.ReservedCartEntry, error) {
	now = now.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT listing_id, offer_id, buyer_id, price, currency, created_at, expires_at
		 FROM reservations WHERE status = $1 AND expires_at <= $2`,
		domain.ReservationActive, now)
	if err != nil {
		return nil, fmt.Errorf("query lapsed reservations: %w", err)
	}

	var expired []domain.ReservedCartEntry
	for rows.Next() {
		var e domain.ReservedCartEntry
		if err := rows.Scan(&e.ListingID, &e.OfferID, &e.BuyerID, &e.Price, &e.Currency, &e.CreatedAt, &e.ExpiresAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		expired = append(expired, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(expired) == 0 {
		return nil, nil
	}

	for _, e := range expired {
		_, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = $1, updated_at = $2 WHERE offer_id = $3 AND status = $4`,
			domain.ReservationExpired, now, e.OfferID, domain.ReservationActive)
		if err != nil {
			return nil, fmt.Errorf("expire reservation: %w", err)
		}

		event := domain.ReservationEvent{
			ListingID:  e.ListingID,
			OfferID:    e.OfferID,
			BuyerID:    e.BuyerID,
			Status:     domain.ReservationExpired,
			OccurredAt: now,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reservation event: %w", err)
		}
		if err := insertOutboxEvent(ctx, tx, e.OfferID, domain.EventReservationExpired, payload, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expiry: %w", err)
	}
	return expired, nil
}

// CompleteReservations marks the buyer's active reservations on the given listings as completed.
func (r *Repository) CompleteReservations(ctx context.Context, buyerID string, listingIDs []string, now time.Time) error {
	if len(listingIDs) == 0 {
		return nil
	}
	args := []any{domain.ReservationCompleted, now.UTC(), buyerID, domain.ReservationActive}
	for _, id := range listingIDs {
		args = append(args, id)
	}
	query := `UPDATE reservations SET status = $1, updated_at = $2
	          WHERE buyer_id = $3 AND status = $4 AND listing_id IN (` + placeholders(5, len(listingIDs)) + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("complete reservations: %w", err)
	}
	return nil
}
