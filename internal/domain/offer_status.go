package domain

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
)

var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferStatusPending:   {OfferStatusCountered, OfferStatusAccepted, OfferStatusRejected},
	OfferStatusCountered: {OfferStatusCountered, OfferStatusAccepted, OfferStatusRejected},
}

// IsTerminal reports whether no transition leaves s.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusAccepted || s == OfferStatusRejected
}

// IsActive reports whether the offer still needs an answer from one party.
func (s OfferStatus) IsActive() bool {
	return s == OfferStatusPending || s == OfferStatusCountered
}

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferStatusPending, OfferStatusCountered, OfferStatusAccepted, OfferStatusRejected:
		return true
	}
	return false
}

// String representation (for logging)
func (s OfferStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to OfferStatus) bool {
	for _, next := range offerTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActiveOfferStatuses are the statuses that block a buyer from submitting another offer.
func ActiveOfferStatuses() []OfferStatus {
	return []OfferStatus{OfferStatusPending, OfferStatusCountered}
}
