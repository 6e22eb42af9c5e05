package address

import (
	"context"
	"fmt"
	"strings"

	"customer-address-manager/internal/domain"
	"customer-address-manager/internal/repository/store"
	"customer-address-manager/internal/service/consistency"
	"customer-address-manager/internal/validation"
)

// Config carries the defaults the service applies to incoming requests.
type Config struct {
	DefaultCountry   string
	DefaultPageLimit int
	MaxPageLimit     int
}

// Service manages addresses directly. Each write locks the owning customer,
// keeps at most one primary address and refreshes the customer's flags in
// the same transaction.
type Service struct {
	store      store.Manager
	maintainer *consistency.Maintainer
	cfg        Config
}

func New(st store.Manager, maintainer *consistency.Maintainer, cfg Config) *Service {
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = "India"
	}
	if cfg.DefaultPageLimit <= 0 {
		cfg.DefaultPageLimit = 10
	}
	if cfg.MaxPageLimit <= 0 {
		cfg.MaxPageLimit = 100
	}
	return &Service{store: st, maintainer: maintainer, cfg: cfg}
}

type CreateInput struct {
	CustomerID   int64  `json:"customer_id" validate:"required,gt=0"`
	AddressLine1 string `json:"address_line1" validate:"required,min=5,max=200"`
	AddressLine2 string `json:"address_line2" validate:"max=200"`
	City         string `json:"city" validate:"required,min=2,max=50"`
	State        string `json:"state" validate:"required,min=2,max=50"`
	PinCode      string `json:"pin_code" validate:"required,len=6,digits"`
	Country      string `json:"country" validate:"max=100"`
	IsPrimary    bool   `json:"is_primary"`
}

// UpdateInput has no customer_id: an address never changes owner. A nil
// IsPrimary keeps the stored value.
type UpdateInput struct {
	AddressLine1 string `json:"address_line1" validate:"required,min=5,max=200"`
	AddressLine2 string `json:"address_line2" validate:"max=200"`
	City         string `json:"city" validate:"required,min=2,max=50"`
	State        string `json:"state" validate:"required,min=2,max=50"`
	PinCode      string `json:"pin_code" validate:"required,len=6,digits"`
	Country      string `json:"country" validate:"max=100"`
	IsPrimary    *bool  `json:"is_primary"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Address, error) {
	in.AddressLine1 = strings.TrimSpace(in.AddressLine1)
	in.AddressLine2 = strings.TrimSpace(in.AddressLine2)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.PinCode = strings.TrimSpace(in.PinCode)
	in.Country = strings.TrimSpace(in.Country)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var created *domain.Address
	err := s.store.WithinTx(ctx, func(r store.Repos) error {
		if err := r.Customers().Lock(ctx, in.CustomerID); err != nil {
			return err
		}
		if in.IsPrimary {
			if err := s.maintainer.ClaimPrimary(ctx, r, in.CustomerID, 0); err != nil {
				return err
			}
		}
		a, err := r.Addresses().Create(ctx, domain.Address{
			CustomerID:   in.CustomerID,
			AddressLine1: in.AddressLine1,
			AddressLine2: in.AddressLine2,
			City:         in.City,
			State:        in.State,
			PinCode:      in.PinCode,
			Country:      s.country(in.Country),
			IsPrimary:    in.IsPrimary,
		})
		if err != nil {
			return err
		}
		if _, err := s.maintainer.Refresh(ctx, r, in.CustomerID); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update rewrites the address in place. The address count does not change,
// so the customer's flags are left alone.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Address, error) {
	in.AddressLine1 = strings.TrimSpace(in.AddressLine1)
	in.AddressLine2 = strings.TrimSpace(in.AddressLine2)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.PinCode = strings.TrimSpace(in.PinCode)
	in.Country = strings.TrimSpace(in.Country)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var updated *domain.Address
	err := s.store.WithinTx(ctx, func(r store.Repos) error {
		current, err := s.lockOwner(ctx, r, id)
		if err != nil {
			return err
		}
		primary := current.IsPrimary
		if in.IsPrimary != nil {
			primary = *in.IsPrimary
		}
		if primary {
			if err := s.maintainer.ClaimPrimary(ctx, r, current.CustomerID, current.ID); err != nil {
				return err
			}
		}
		updated, err = r.Addresses().Update(ctx, domain.Address{
			ID:           current.ID,
			CustomerID:   current.CustomerID,
			AddressLine1: in.AddressLine1,
			AddressLine2: in.AddressLine2,
			City:         in.City,
			State:        in.State,
			PinCode:      in.PinCode,
			Country:      s.country(in.Country),
			IsPrimary:    primary,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the address. Deleting the primary does not promote another
// address.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.WithinTx(ctx, func(r store.Repos) error {
		current, err := s.lockOwner(ctx, r, id)
		if err != nil {
			return err
		}
		if err := r.Addresses().Delete(ctx, id); err != nil {
			return err
		}
		_, err = s.maintainer.Refresh(ctx, r, current.CustomerID)
		return err
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.AddressDetail, error) {
	return s.store.Repos().Addresses().GetDetail(ctx, id)
}

func (s *Service) List(ctx context.Context, q domain.AddressQuery) (*domain.AddressPage, error) {
	q.PageRequest = q.PageRequest.Normalize(s.cfg.DefaultPageLimit, s.cfg.MaxPageLimit)
	list, total, err := s.store.Repos().Addresses().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	if list == nil {
		list = []domain.AddressDetail{}
	}
	return &domain.AddressPage{
		Addresses:  list,
		Pagination: domain.NewPagination(q.PageRequest, total),
	}, nil
}

// ListForCustomer returns the customer's addresses primary first, then
// oldest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID int64) ([]domain.Address, error) {
	r := s.store.Repos()
	if _, err := r.Customers().GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	list, err := r.Addresses().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	if list == nil {
		list = []domain.Address{}
	}
	return list, nil
}

// lockOwner resolves the address's customer and locks it. The address is
// re-read under the lock since a concurrent writer may have removed it.
func (s *Service) lockOwner(ctx context.Context, r store.Repos, id int64) (*domain.Address, error) {
	a, err := r.Addresses().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.Customers().Lock(ctx, a.CustomerID); err != nil {
		return nil, err
	}
	return r.Addresses().GetByID(ctx, id)
}

func (s *Service) country(c string) string {
	if c == "" {
		return s.cfg.DefaultCountry
	}
	return c
}
