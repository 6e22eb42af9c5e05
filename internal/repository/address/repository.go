package address

import (
	"context"

	"customer-address-manager/internal/domain"
)

// Repository persists and fetches addresses.
type Repository interface {
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
	GetByID(ctx context.Context, id int64) (*domain.Address, error)
	GetDetail(ctx context.Context, id int64) (*domain.AddressDetail, error)
	// Update rewrites the mutable fields; the owning customer never changes.
	Update(ctx context.Context, a domain.Address) (*domain.Address, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCustomer(ctx context.Context, customerID int64) (int64, error)
	// ClearPrimary unsets is_primary on every address of the customer except
	// exceptID (0 clears all of them).
	ClearPrimary(ctx context.Context, customerID, exceptID int64) error
	CountByCustomer(ctx context.Context, customerID int64) (int, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Address, error)
	ListByCustomers(ctx context.Context, customerIDs []int64) (map[int64][]domain.Address, error)
	List(ctx context.Context, q domain.AddressQuery) ([]domain.AddressDetail, int, error)
}
