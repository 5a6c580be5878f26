package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []OfferStatus{
	OfferStatusPending,
	OfferStatusCountered,
	OfferStatusAccepted,
	OfferStatusRejected,
}

func TestCanTransitionTo_Closure(t *testing.T) {
	allowed := map[OfferStatus]map[OfferStatus]bool{
		OfferStatusPending: {
			OfferStatusCountered: true,
			OfferStatusAccepted:  true,
			OfferStatusRejected:  true,
		},
		OfferStatusCountered: {
			OfferStatusCountered: true,
			OfferStatusAccepted:  true,
			OfferStatusRejected:  true,
		},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[from][to], CanTransitionTo(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingTransitions(t *testing.T) {
	for _, from := range []OfferStatus{OfferStatusAccepted, OfferStatusRejected} {
		assert.True(t, from.IsTerminal())
		assert.False(t, from.IsActive())
		for _, to := range allStatuses {
			assert.False(t, CanTransitionTo(from, to), "%s -> %s", from, to)
		}
	}
}

func TestPendingCannotGoBackToPending(t *testing.T) {
	assert.False(t, CanTransitionTo(OfferStatusPending, OfferStatusPending))
	assert.False(t, CanTransitionTo(OfferStatusCountered, OfferStatusPending))
}

func TestOfferStatus_Valid(t *testing.T) {
	for _, s := range allStatuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, OfferStatus("sold").Valid())
	assert.False(t, OfferStatus("").Valid())
}
