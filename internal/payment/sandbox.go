package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Refusal reasons reported by the sandbox, indexed by the roll above the approval threshold.
var refusalReasons = []string{
	"",
	"insufficient_funds",
	"card_expired",
	"suspected_fraud",
	"card_blocked",
	"limit_exceeded",
}

// Decider tells the sandbox whether a capture goes through. An empty reason means approved.
type Decider interface {
	Decide() (approved bool, reason string)
}

// RandomDecider approves about 95% of captures.
type RandomDecider struct{}

func (RandomDecider) Decide() (bool, string) {
	return decide(rand.Intn(101))
}

func decide(roll int) (bool, string) {
	if roll < 95 {
		return true, ""
	}
	other := roll - 95
	if other == 0 || other >= len(refusalReasons) {
		return false, "unknown reason"
	}
	return false, refusalReasons[other]
}

// AlwaysApprove is a Decider for tests and local development.
type AlwaysApprove struct{}

func (AlwaysApprove) Decide() (bool, string) { return true, "" }

// Sandbox is an in-process provider of both kinds. It backs local development when no real
// provider is configured and serves the provider wire protocol through Handler.
type Sandbox struct {
	mu       sync.Mutex
	orders   map[string]*sandboxOrder
	sessions map[string]SessionRequest
	decider  Decider
	baseURL  string
}

type sandboxOrder struct {
	charge  Charge
	capture *Capture
}

func NewSandbox(baseURL string, decider Decider) *Sandbox {
	if decider == nil {
		decider = RandomDecider{}
	}
	return &Sandbox{
		orders:   make(map[string]*sandboxOrder),
		sessions: make(map[string]SessionRequest),
		decider:  decider,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (s *Sandbox) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	if len(req.Lines) == 0 {
		return nil, &providerError{Status: http.StatusBadRequest, Message: "no lines"}
	}
	id := "cs_" + uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = req
	s.mu.Unlock()

	return &Session{ID: id, RedirectURL: s.baseURL + "/pay/" + id}, nil
}

func (s *Sandbox) CreateOrder(_ context.Context, charge Charge) (*Order, error) {
	if len(charge.Lines) == 0 {
		return nil, &providerError{Status: http.StatusBadRequest, Message: "no lines"}
	}
	id := "ord_" + uuid.NewString()

	s.mu.Lock()
	s.orders[id] = &sandboxOrder{charge: charge}
	s.mu.Unlock()

	return &Order{ID: id, Status: "CREATED"}, nil
}

// CaptureOrder settles an order once; later calls return the first outcome.
func (s *Sandbox) CaptureOrder(_ context.Context, orderID string) (*Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, &providerError{Status: http.StatusNotFound, Message: "order not found"}
	}
	if order.capture != nil {
		c := *order.capture
		return &c, nil
	}

	capture := &Capture{OrderID: orderID}
	if approved, reason := s.decider.Decide(); approved {
		capture.Status = CaptureStatusCompleted
		capture.TransactionID = fmt.Sprintf("TXN-%d", time.Now().UnixNano())
	} else {
		capture.Status = CaptureStatusDeclined
		capture.Reason = reason
	}
	order.capture = capture

	c := *capture
	return &c, nil
}

// Handler serves the provider protocol spoken by RedirectClient and OrderClient.
func (s *Sandbox) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req SessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeSandbox(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		session, err := s.CreateSession(r.Context(), req)
		writeSandboxResult(w, session, err)
	})
	r.Post("/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		var charge Charge
		if err := json.NewDecoder(r.Body).Decode(&charge); err != nil {
			writeSandbox(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		order, err := s.CreateOrder(r.Context(), charge)
		writeSandboxResult(w, order, err)
	})
	r.Post("/v1/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		capture, err := s.CaptureOrder(r.Context(), chi.URLParam(r, "id"))
		writeSandboxResult(w, capture, err)
	})
	return r
}

func writeSandboxResult(w http.ResponseWriter, v any, err error) {
	if pe, ok := err.(*providerError); ok {
		writeSandbox(w, pe.Status, map[string]string{"error": pe.Message})
		return
	}
	if err != nil {
		writeSandbox(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeSandbox(w, http.StatusOK, v)
}

func writeSandbox(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
