package cart

import "github.com/fjod/go_cart/storefront/internal/domain"

// Reconcile merges reserved items with the local cart. Reserved items come first and win on
// id collision; local items keep their order. Neither input is modified.
func Reconcile(reserved, local []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(reserved)+len(local))
	seen := make(map[string]struct{}, len(reserved)+len(local))

	for _, item := range reserved {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		item.IsLocked = true
		out = append(out, item)
	}
	for _, item := range local {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Totals sums item prices. The currency is the first item's, or the default for an empty cart.
func Totals(items []domain.CartItem) (float64, string) {
	currency := domain.DefaultCurrency
	if len(items) > 0 && items[0].Currency != "" {
		currency = items[0].Currency
	}
	var total float64
	for _, item := range items {
		total += item.Price
	}
	return domain.RoundCents(total), currency
}

// View is the reconciled cart as rendered to a buyer.
type View struct {
	Items          []domain.CartItem `json:"items"`
	Total          float64           `json:"total"`
	Currency       string            `json:"currency"`
	FormattedTotal string            `json:"formatted_total"`
}

func NewView(items []domain.CartItem) View {
	if items == nil {
		items = []domain.CartItem{}
	}
	total, currency := Totals(items)
	return View{
		Items:          items,
		Total:          total,
		Currency:       currency,
		FormattedTotal: domain.FormatPrice(total, currency),
	}
}
