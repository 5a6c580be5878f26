package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
)

const offerColumns = `id, listing_id, buyer_id, seller_id, initial_offer_amount, current_offer_amount,
	counter_offer_amount, currency, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var (
		o       domain.Offer
		counter sql.NullFloat64
	)
	if err := row.Scan(
		&o.ID,
		&o.ListingID,
		&o.BuyerID,
		&o.SellerID,
		&o.InitialOfferAmount,
		&o.CurrentOfferAmount,
		&counter,
		&o.Currency,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if counter.Valid {
		v := counter.Float64
		o.CounterOfferAmount = &v
	}
	o.Messages = []domain.OfferMessage{}
	return &o, nil
}

// CreateOffer inserts a pending offer, its opening messages and the submitted event in one transaction.
func (r *Repository) CreateOffer(ctx context.Context, offer *domain.Offer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO offers (id, listing_id, buyer_id, seller_id, initial_offer_amount, current_offer_amount,
	              counter_offer_amount, currency, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, insertErr := tx.ExecContext(ctx, query,
		offer.ID,
		offer.ListingID,
		offer.BuyerID,
		offer.SellerID,
		offer.InitialOfferAmount,
		offer.CurrentOfferAmount,
		offer.CounterOfferAmount,
		offer.Currency,
		offer.Status,
		offer.CreatedAt.UTC(),
		offer.UpdatedAt.UTC())
	if insertErr != nil {
		if isUniqueViolation(insertErr) {
			return ErrActiveOfferExists
		}
		return fmt.Errorf("insert offer: %w", insertErr)
	}

	for _, m := range offer.Messages {
		if err := insertOfferMessage(ctx, tx, offer.ID, m); err != nil {
			return err
		}
	}

	if err := insertOfferEvent(ctx, tx, offer); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit offer: %w", err)
	}
	return nil
}

func (r *Repository) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	o, err := scanOffer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query offer by id: %w", err)
	}

	if err := r.attachMessages(ctx, []*domain.Offer{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// FindActiveOffer returns the pending or countered offer for (listing, buyer), or ErrOfferNotFound.
func (r *Repository) FindActiveOffer(ctx context.Context, listingID, buyerID string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + `
	          FROM offers WHERE listing_id = $1 AND buyer_id = $2 AND status IN ($3, $4)`

	o, err := scanOffer(r.db.QueryRowContext(ctx, query,
		listingID, buyerID, domain.OfferStatusPending, domain.OfferStatusCountered))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query active offer: %w", err)
	}
	return o, nil
}

// ListOffers returns matching offers with their message history, most recently updated first.
func (r *Repository) ListOffers(ctx context.Context, filter OfferFilter) ([]*domain.Offer, error) {
	var (
		conds []string
		args  []any
	)
	if filter.BuyerID != "" {
		args = append(args, filter.BuyerID)
		conds = append(conds, fmt.Sprintf("buyer_id = $%d", len(args)))
	}
	if filter.SellerID != "" {
		args = append(args, filter.SellerID)
		conds = append(conds, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, fmt.Sprintf("status IN (%s)", placeholders(len(args)+1, len(filter.Statuses))))
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}

	query := `SELECT ` + offerColumns + ` FROM offers`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	offers := []*domain.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer row: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.attachMessages(ctx, offers); err != nil {
		return nil, err
	}
	return offers, nil
}

// TransitionOffer applies t only if the stored status is still t.From. The status update,
// the appended message, reservation changes and the outbox event commit together.
func (r *Repository) TransitionOffer(ctx context.Context, t OfferTransition) error {
	offer := t.Offer
	now := offer.UpdatedAt.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE offers
	          SET status = $1, current_offer_amount = $2, counter_offer_amount = $3, updated_at = $4
	          WHERE id = $5 AND status = $6`
	res, err := tx.ExecContext(ctx, query,
		offer.Status,
		offer.CurrentOfferAmount,
		offer.CounterOfferAmount,
		now,
		offer.ID,
		t.From)
	if err != nil {
		return fmt.Errorf("update offer status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConcurrentUpdate
	}

	if err := insertOfferMessage(ctx, tx, offer.ID, t.Message); err != nil {
		return err
	}

	if t.Reservation != nil {
		if err := insertReservation(ctx, tx, t.Reservation, now); err != nil {
			return err
		}
	}

	if t.ReleaseReservation {
		_, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = $1, updated_at = $2 WHERE offer_id = $3 AND status = $4`,
			domain.ReservationReleased, now, offer.ID, domain.ReservationActive)
		if err != nil {
			return fmt.Errorf("release reservation: %w", err)
		}
	}

	if err := insertOfferEvent(ctx, tx, offer); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

func (r *Repository) attachMessages(ctx context.Context, offers []*domain.Offer) error {
	if len(offers) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Offer, len(offers))
	args := make([]any, 0, len(offers))
	for _, o := range offers {
		byID[o.ID] = o
		args = append(args, o.ID)
	}

	query := `SELECT offer_id, sender_id, message_text, is_system_message, created_at
	          FROM offer_messages WHERE offer_id IN (` + placeholders(1, len(args)) + `) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query offer messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			offerID string
			m       domain.OfferMessage
		)
		if err := rows.Scan(&offerID, &m.SenderID, &m.MessageText, &m.IsSystemMessage, &m.CreatedAt); err != nil {
			return fmt.Errorf("scan offer message: %w", err)
		}
		if o, ok := byID[offerID]; ok {
			o.Messages = append(o.Messages, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func insertOfferMessage(ctx context.Context, tx *sql.Tx, offerID string, m domain.OfferMessage) error {
	query := `INSERT INTO offer_messages (offer_id, sender_id, message_text, is_system_message, created_at)
	          VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, offerID, m.SenderID, m.MessageText, m.IsSystemMessage, m.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert offer message: %w", err)
	}
	return nil
}

func insertReservation(ctx context.Context, tx *sql.Tx, e *domain.ReservedCartEntry, now time.Time) error {
	// a lapsed reservation that the sweep has not reached yet must not block the listing
	_, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = $1, updated_at = $2
		 WHERE listing_id = $3 AND status = $4 AND expires_at <= $2`,
		domain.ReservationExpired, now, e.ListingID, domain.ReservationActive)
	if err != nil {
		return fmt.Errorf("expire lapsed reservation: %w", err)
	}

	query := `INSERT INTO reservations (id, offer_id, listing_id, buyer_id, price, currency, status, created_at, expires_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, insertErr := tx.ExecContext(ctx, query,
		uuid.NewString(),
		e.OfferID,
		e.ListingID,
		e.BuyerID,
		e.Price,
		e.Currency,
		domain.ReservationActive,
		e.CreatedAt.UTC(),
		e.ExpiresAt.UTC(),
		now)
	if insertErr != nil {
		if isUniqueViolation(insertErr) {
			return ErrListingReserved
		}
		return fmt.Errorf("insert reservation: %w", insertErr)
	}
	return nil
}

func insertOfferEvent(ctx context.Context, tx *sql.Tx, offer *domain.Offer) error {
	event := domain.NewOfferEvent(offer)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal offer event: %w", err)
	}
	return insertOutboxEvent(ctx, tx, offer.ID, event.EventType(), payload, event.OccurredAt)
}
