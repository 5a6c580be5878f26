package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *Repository {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Driver:            DriverPostgres,
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestPostgres_OfferLifecycle(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	offer := newPendingOffer("lst-1001", "buyer-1", 500, baseTime)
	require.NoError(t, repo.CreateOffer(ctx, offer))

	err := repo.CreateOffer(ctx, newPendingOffer("lst-1001", "buyer-1", 510, baseTime))
	assert.ErrorIs(t, err, ErrActiveOfferExists)

	require.NoError(t, acceptWithReservation(t, repo, offer, domain.OfferStatusPending, baseTime.Add(time.Hour), 48*time.Hour))

	err = acceptWithReservation(t, repo, offer, domain.OfferStatusPending, baseTime.Add(time.Hour), 48*time.Hour)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	entries, err := repo.ListActiveReservations(ctx, "buyer-1", baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 500.0, entries[0].Price)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestPostgres_SecondReservationOnListing(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	a := newPendingOffer("lst-1002", "buyer-1", 1000, baseTime)
	b := newPendingOffer("lst-1002", "buyer-2", 1100, baseTime)
	require.NoError(t, repo.CreateOffer(ctx, a))
	require.NoError(t, repo.CreateOffer(ctx, b))

	require.NoError(t, acceptWithReservation(t, repo, a, domain.OfferStatusPending, baseTime, 48*time.Hour))
	err := acceptWithReservation(t, repo, b, domain.OfferStatusPending, baseTime, 48*time.Hour)
	assert.ErrorIs(t, err, ErrListingReserved)
}
