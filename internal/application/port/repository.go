package port

import (
	"context"
	"errors"

	"github.com/garyjia/ai-claims/internal/domain/entity"
)

// ErrClaimNotFound is returned by ClaimRepository when no claim has the given id
var ErrClaimNotFound = errors.New("claim not found")

// ErrClaimExists is returned by Create when the id is already taken
var ErrClaimExists = errors.New("claim already exists")

// ClaimFilter narrows List results; zero fields match everything
type ClaimFilter struct {
	Status      entity.ClaimStatus
	Category    entity.Category
	CustomerID  string
	OrderNumber string
	ProductID   string
}

// Matches reports whether claim satisfies every non-empty field
func (f ClaimFilter) Matches(claim *entity.Claim) bool {
	if f.Status != "" && claim.Status != f.Status {
		return false
	}
	if f.Category != "" && claim.Category != f.Category {
		return false
	}
	if f.CustomerID != "" && claim.CustomerID != f.CustomerID {
		return false
	}
	if f.OrderNumber != "" && claim.OrderNumber != f.OrderNumber {
		return false
	}
	if f.ProductID != "" && claim.ProductID != f.ProductID {
		return false
	}
	return true
}

// ClaimRepository owns claim records.
// Implementations return copies; callers never hold a live reference.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)
	// List returns matching claims ordered by submission date
	List(ctx context.Context, filter ClaimFilter) ([]*entity.Claim, error)
	// Update replaces the stored record; audit entries already stored are never rewritten
	Update(ctx context.Context, claim *entity.Claim) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
