package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buyer = domain.Identity{UserID: "buyer-1", Role: domain.RoleBuyer}

type fixture struct {
	svc       *Service
	cart      *mockCart
	provider  *recordingProvider
	completer *mockCompleter
	inval     *mockInvalidator
}

func newFixture(decider payment.Decider) *fixture {
	f := &fixture{
		cart:      &mockCart{items: sampleItems()},
		provider:  newRecordingProvider(decider),
		completer: &mockCompleter{},
		inval:     &mockInvalidator{},
	}
	f.svc = NewService(f.cart, f.provider, f.provider, NewMemoryPendingOrders(), f.completer,
		Options{SuccessURL: "https://shop.local/ok", CancelURL: "https://shop.local/cancel", Invalidator: f.inval},
		zerolog.Nop())
	return f
}

func checkoutRequest() domain.CheckoutRequest {
	return domain.CheckoutRequest{
		Items: []domain.CheckoutLine{
			{ListingID: "lst-1001", Quantity: 1},
			{ListingID: "lst-1005", Quantity: 1},
		},
		ShippingAddress: fullAddress(),
	}
}

func TestService_AnonymousNeverReadsCart(t *testing.T) {
	f := newFixture(payment.AlwaysApprove{})
	ctx := context.Background()

	_, err := f.svc.CreateRedirectSession(ctx, domain.Anonymous(), "ns", checkoutRequest())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.CreateProviderOrder(ctx, domain.Anonymous(), "ns", checkoutRequest())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.CaptureProviderOrder(ctx, domain.Anonymous(), "ord_1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Zero(t, f.cart.calls)
	assert.Empty(t, f.provider.charges)
}

func TestService_IncompleteAddressFailsBeforeCart(t *testing.T) {
	f := newFixture(payment.AlwaysApprove{})
	req := checkoutRequest()
	req.ShippingAddress.Country = ""

	_, err := f.svc.CreateRedirectSession(context.Background(), buyer, "ns", req)
	assert.ErrorIs(t, err, ErrIncompleteAddress)
	assert.Zero(t, f.cart.calls)
}

func TestService_EmptyCart(t *testing.T) {
	f := newFixture(payment.AlwaysApprove{})
	f.cart.items = nil
	req := checkoutRequest()
	req.Items = nil

	_, err := f.svc.CreateProviderOrder(context.Background(), buyer, "ns", req)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestService_RejectsStaleItems(t *testing.T) {
	f := newFixture(payment.AlwaysApprove{})
	req := checkoutRequest()
	req.Items = req.Items[:1]

	_, err := f.svc.CreateRedirectSession(context.Background(), buyer, "ns", req)
	assert.ErrorIs(t, err, ErrCartMismatch)
	assert.Empty(t, f.provider.charges)
}

func TestService_BothPathsChargeTheSame(t *testing.T) {
	f := newFixture(payment.AlwaysApprove{})
	ctx := context.Background()

	session, err := f.svc.CreateRedirectSession(ctx, buyer, "ns", checkoutRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, session.RedirectURL)
	assert.Equal(t, 830.0, session.Total)
	assert.Equal(t, "$830.00", session.FormattedTotal)

	order, err := f.svc.CreateProviderOrder(ctx, buyer, "ns", checkoutRequest())
	require.NoError(t, err)
	assert.Equal(t, session.Total, order.Total)
	assert.Equal(t, session.Currency, order.Currency)

	require.Len(t, f.provider.charges, 2)
	assert.Equal(t, f.provider.charges[0], f.provider.charges[1])
	assert.Equal(t, "buyer-1", f.provider.charges[0].CustomerID)
	assert.Equal(t, 650.0, f.provider.charges[0].Lines[0].UnitAmount)
}

func TestService_CaptureCompletesReservations(t *testing.T) {
	f := newFixture(payment.AlwaysApprove{})
	ctx := context.Background()

	order, err := f.svc.CreateProviderOrder(ctx, buyer, "ns", checkoutRequest())
	require.NoError(t, err)

	other := domain.Identity{UserID: "buyer-2"}
	_, err = f.svc.CaptureProviderOrder(ctx, other, order.OrderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	result, err := f.svc.CaptureProviderOrder(ctx, buyer, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, payment.CaptureStatusCompleted, result.Status)

	assert.Equal(t, 1, f.completer.calls)
	assert.Equal(t, "buyer-1", f.completer.buyerID)
	assert.Equal(t, []string{"lst-1001", "lst-1005"}, f.completer.listingIDs)
	assert.Equal(t, []string{"buyer-1"}, f.inval.buyers)

	_, err = f.svc.CaptureProviderOrder(ctx, buyer, order.OrderID)
	assert.ErrorIs(t, err, ErrOrderNotFound, "a captured order is forgotten")
}

type declineAll struct{}

func (declineAll) Decide() (bool, string) { return false, "insufficient_funds" }

func TestService_DeclinedCaptureKeepsReservations(t *testing.T) {
	f := newFixture(declineAll{})
	ctx := context.Background()

	order, err := f.svc.CreateProviderOrder(ctx, buyer, "ns", checkoutRequest())
	require.NoError(t, err)

	result, err := f.svc.CaptureProviderOrder(ctx, buyer, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, payment.CaptureStatusDeclined, result.Status)
	assert.Equal(t, "insufficient_funds", result.Reason)
	assert.Zero(t, f.completer.calls)
}

func TestService_CartErrorIsWrapped(t *testing.T) {
	f := newFixture(payment.AlwaysApprove{})
	boom := errors.New("redis down")
	f.cart.err = boom

	_, err := f.svc.CreateRedirectSession(context.Background(), buyer, "ns", checkoutRequest())
	assert.ErrorIs(t, err, boom)
}
