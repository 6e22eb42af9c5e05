package customer

import (
	"context"

	"customer-address-manager/internal/domain"
)

// CountFilter selects customers by how many addresses they currently own.
type CountFilter int

const (
	// MultipleAddresses matches customers with more than one address,
	// ordered by address count descending.
	MultipleAddresses CountFilter = iota
	// SingleAddress matches customers with exactly one address, newest first.
	SingleAddress
)

// Repository persists and fetches customers.
type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	// Lock takes a row lock on the customer for the rest of the transaction.
	Lock(ctx context.Context, id int64) error
	Update(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	Delete(ctx context.Context, id int64) error
	PhoneTaken(ctx context.Context, phone string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	SetAddressFlags(ctx context.Context, id int64, multiple, single bool) error
	List(ctx context.Context, q domain.CustomerQuery) ([]domain.Customer, int, error)
	ListByAddressCount(ctx context.Context, f CountFilter) ([]domain.Customer, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Stats(ctx context.Context) (domain.Stats, error)
}
