package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Mock is an in-process PaymentGateway for tests and local development.
// Every intent is approved unless Decline or Fail is set.
type Mock struct {
	mu sync.Mutex

	// Decline makes ConfirmIntent return Approved=false.
	Decline bool
	// Fail makes every call return an error, simulating an unreachable
	// gateway.
	Fail bool

	intents   map[string]string // external id -> status
	Confirmed []string
	Cancelled []string
}

func NewMock() *Mock {
	return &Mock{intents: map[string]string{}}
}

var errGatewayDown = errors.New("gateway unreachable")

func (m *Mock) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, errGatewayDown
	}
	id := "pi_" + uuid.NewString()
	m.intents[id] = "requires_confirmation"
	return &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString()[:8],
		Metadata:     `{"mock":true}`,
	}, nil
}

func (m *Mock) ConfirmIntent(_ context.Context, externalID string) (*ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, errGatewayDown
	}
	if _, ok := m.intents[externalID]; !ok {
		return nil, errors.New("unknown intent " + externalID)
	}
	if m.Decline {
		m.intents[externalID] = "declined"
		return &ConfirmResult{Approved: false, Message: "card declined"}, nil
	}
	m.intents[externalID] = "succeeded"
	m.Confirmed = append(m.Confirmed, externalID)
	return &ConfirmResult{Approved: true}, nil
}

func (m *Mock) CancelIntent(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errGatewayDown
	}
	m.intents[externalID] = "cancelled"
	m.Cancelled = append(m.Cancelled, externalID)
	return nil
}
