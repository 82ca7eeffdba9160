package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// ClaimStore is an in-process port.ClaimRepository.
// Records go in and come out as deep copies.
type ClaimStore struct {
	mu     sync.RWMutex
	claims map[string]*entity.Claim
}

// NewClaimStore creates an empty store
func NewClaimStore() *ClaimStore {
	return &ClaimStore{
		claims: make(map[string]*entity.Claim),
	}
}

func (s *ClaimStore) Create(ctx context.Context, claim *entity.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.claims[claim.ID]; exists {
		return fmt.Errorf("%w: %s", port.ErrClaimExists, claim.ID)
	}
	s.claims[claim.ID] = claim.Clone()
	return nil
}

func (s *ClaimStore) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claim, ok := s.claims[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", port.ErrClaimNotFound, id)
	}
	return claim.Clone(), nil
}

// List returns matching claims ordered by submission date, then id
func (s *ClaimStore) List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error) {
	s.mu.RLock()
	claims := make([]*entity.Claim, 0, len(s.claims))
	for _, claim := range s.claims {
		if filter.Matches(claim) {
			claims = append(claims, claim.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(claims, func(i, j int) bool {
		if claims[i].SubmissionDate.Equal(claims[j].SubmissionDate) {
			return claims[i].ID < claims[j].ID
		}
		return claims[i].SubmissionDate.Before(claims[j].SubmissionDate)
	})
	return claims, nil
}

// Update replaces the record. A shorter audit trail than the stored one is rejected.
func (s *ClaimStore) Update(ctx context.Context, claim *entity.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.claims[claim.ID]
	if !ok {
		return fmt.Errorf("%w: %s", port.ErrClaimNotFound, claim.ID)
	}
	if len(claim.AuditTrail) < len(stored.AuditTrail) {
		return fmt.Errorf("audit trail for %s would shrink from %d to %d entries",
			claim.ID, len(stored.AuditTrail), len(claim.AuditTrail))
	}
	s.claims[claim.ID] = claim.Clone()
	return nil
}

// TxManager runs fn directly; the in-memory store has no transactions
type TxManager struct{}

// WithTransaction implements port.TransactionManager
func (TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ port.ClaimRepository    = (*ClaimStore)(nil)
	_ port.TransactionManager = TxManager{}
)
