package attempts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
)

// MemoryStore is the ledger used when no database is configured.
type MemoryStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]payment.Attempt
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]payment.Attempt), now: time.Now}
}

func (m *MemoryStore) Open(ctx context.Context, a payment.Attempt) (payment.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	abandon, err := payment.CheckOpen(m.forOrder(a.OrderID))
	if err != nil {
		return payment.Attempt{}, err
	}
	now := m.now().UTC()
	for _, id := range abandon {
		old := m.byID[id]
		old.Reconciliation = payment.Abandoned
		old.UpdatedAt = now
		m.byID[id] = old
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	m.byID[a.ID] = a
	return a, nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return payment.Attempt{}, payment.ErrAttemptNotFound
	}
	return a, nil
}

func (m *MemoryStore) ForOrder(ctx context.Context, orderID int64) ([]payment.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forOrder(orderID), nil
}

func (m *MemoryStore) ClaimConfirmation(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	return m.update(id, func(a *payment.Attempt) error {
		if a.Gateway != payment.OutcomePending || a.Reconciliation != payment.Unreported {
			return payment.ConfirmConflict(*a)
		}
		a.Gateway = payment.OutcomeConfirming
		return nil
	})
}

func (m *MemoryStore) RecordGatewayOutcome(ctx context.Context, id uuid.UUID, outcome payment.GatewayOutcome, transactionID, lastError string) (payment.Attempt, error) {
	return m.update(id, func(a *payment.Attempt) error {
		if a.Gateway != payment.OutcomeConfirming || a.Reconciliation != payment.Unreported {
			return payment.ErrAttemptState
		}
		a.Gateway = outcome
		a.TransactionID = transactionID
		a.LastError = lastError
		return nil
	})
}

func (m *MemoryStore) ClaimReport(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	return m.update(id, func(a *payment.Attempt) error {
		if a.Reconciliation != payment.Unreported {
			return payment.ErrAlreadyReported
		}
		a.Reconciliation = payment.Reporting
		return nil
	})
}

func (m *MemoryStore) FinishReport(ctx context.Context, id uuid.UUID, ok bool, lastError string) (payment.Attempt, error) {
	return m.update(id, func(a *payment.Attempt) error {
		if a.Reconciliation != payment.Reporting {
			return payment.ErrAttemptState
		}
		a.Reconciliation = payment.ReportFailed
		if ok {
			a.Reconciliation = payment.Reported
		}
		if lastError != "" {
			a.LastError = lastError
		}
		return nil
	})
}

func (m *MemoryStore) ListUnreconciled(ctx context.Context) ([]payment.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []payment.Attempt
	for _, a := range m.byID {
		if a.Unreconciled() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) update(id uuid.UUID, fn func(*payment.Attempt) error) (payment.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return payment.Attempt{}, payment.ErrAttemptNotFound
	}
	if err := fn(&a); err != nil {
		return payment.Attempt{}, err
	}
	a.UpdatedAt = m.now().UTC()
	m.byID[id] = a
	return a, nil
}

func (m *MemoryStore) forOrder(orderID int64) []payment.Attempt {
	var out []payment.Attempt
	for _, a := range m.byID {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
