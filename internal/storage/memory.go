// Package storage provides the Payment and PaymentMethod store adapters.
// The in-memory store is the default for tests and single-node development;
// the Redis store backs deployments that need the entities to survive a
// restart.
package storage

import (
	"context"
	"sync"

	"github.com/commercegate/heartland-payments/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore keeps Payments and PaymentMethods in maps guarded by a
// RWMutex. It implements domain.PaymentStore and domain.PaymentMethodStore.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment
	methods  map[string]domain.PaymentMethod
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments: make(map[string]domain.Payment),
		methods:  make(map[string]domain.PaymentMethod),
	}
}

// SavePayment inserts or overwrites a payment. An ID is minted on first
// save. The stored copy is detached from the caller's pointer.
func (s *MemoryStore) SavePayment(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	s.payments[p.ID] = *p
	return nil
}

// GetPayment returns a copy of the stored payment.
func (s *MemoryStore) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// SavePaymentMethod inserts or overwrites a payment method, minting an ID
// on first save.
func (s *MemoryStore) SavePaymentMethod(_ context.Context, m *domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	s.methods[m.ID] = *m
	return nil
}

// GetPaymentMethod returns a copy of the stored method.
func (s *MemoryStore) GetPaymentMethod(_ context.Context, id string) (*domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.methods[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

// DeletePaymentMethod removes a stored method.
func (s *MemoryStore) DeletePaymentMethod(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.methods[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.methods, id)
	return nil
}
