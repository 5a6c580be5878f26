package cart

import (
	"encoding/json"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func reservedItem(id string, price float64) domain.CartItem {
	return domain.CartItem{ID: id, Title: "reserved " + id, Price: price, Currency: "USD", IsLocked: true, OfferID: strPtr("offer-" + id)}
}

func localItem(id string, price float64) domain.CartItem {
	return domain.CartItem{ID: id, Title: "local " + id, Price: price, Currency: "USD"}
}

func TestReconcile_ReservedWinsOnCollision(t *testing.T) {
	reserved := []domain.CartItem{reservedItem("lst-1", 650)}
	local := []domain.CartItem{localItem("lst-9", 20), localItem("lst-1", 800), localItem("lst-5", 35)}

	got := Reconcile(reserved, local)

	require.Len(t, got, 3)
	assert.Equal(t, "lst-1", got[0].ID)
	assert.Equal(t, 650.0, got[0].Price)
	assert.True(t, got[0].IsLocked)
	assert.Equal(t, "lst-9", got[1].ID)
	assert.Equal(t, "lst-5", got[2].ID)

	count := 0
	for _, item := range got {
		if item.ID == "lst-1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	reserved := []domain.CartItem{reservedItem("lst-1", 650)}
	local := []domain.CartItem{localItem("lst-1", 800), localItem("lst-2", 10)}
	reservedBefore, _ := json.Marshal(reserved)
	localBefore, _ := json.Marshal(local)

	got := Reconcile(reserved, local)
	got[0].Price = 1

	reservedAfter, _ := json.Marshal(reserved)
	localAfter, _ := json.Marshal(local)
	assert.Equal(t, string(reservedBefore), string(reservedAfter))
	assert.Equal(t, string(localBefore), string(localAfter))
}

func TestReconcile_Idempotent(t *testing.T) {
	reserved := []domain.CartItem{reservedItem("lst-1", 650), reservedItem("lst-3", 120)}
	local := []domain.CartItem{localItem("lst-3", 150), localItem("lst-2", 10), localItem("lst-1", 800)}

	once := Reconcile(reserved, local)
	twice := Reconcile(reserved, once)

	a, err := json.Marshal(once)
	require.NoError(t, err)
	b, err := json.Marshal(twice)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestReconcile_EmptyInputs(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil))
	assert.Len(t, Reconcile(nil, []domain.CartItem{localItem("a", 1)}), 1)
	assert.Len(t, Reconcile([]domain.CartItem{reservedItem("a", 1)}, nil), 1)
}

func TestTotals(t *testing.T) {
	total, currency := Totals(nil)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, "USD", currency)

	total, currency = Totals([]domain.CartItem{
		{ID: "a", Price: 650, Currency: "CAD"},
		{ID: "b", Price: 10.1},
		{ID: "c", Price: 0.2},
	})
	assert.Equal(t, 660.3, total)
	assert.Equal(t, "CAD", currency)
}

func TestNewView(t *testing.T) {
	v := NewView([]domain.CartItem{reservedItem("lst-1", 650), localItem("lst-2", 600.5)})
	assert.Equal(t, 1250.5, v.Total)
	assert.Equal(t, "$1,250.50", v.FormattedTotal)

	empty := NewView(nil)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, "$0.00", empty.FormattedTotal)
}
