package customer

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"customer-address-manager/internal/domain"
	customerrepo "customer-address-manager/internal/repository/customer"
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

// Service creates, replaces and deletes customers together with their
// address sets. Every write runs in a single transaction that also
// recomputes the customer's derived address flags.
type Service struct {
	store      store.Manager
	maintainer *consistency.Maintainer
	cfg        Config
	logger     *log.Logger
}

// New creates a Service. logger may be nil.
func New(st store.Manager, maintainer *consistency.Maintainer, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = "India"
	}
	if cfg.DefaultPageLimit <= 0 {
		cfg.DefaultPageLimit = 10
	}
	if cfg.MaxPageLimit <= 0 {
		cfg.MaxPageLimit = 100
	}
	return &Service{store: st, maintainer: maintainer, cfg: cfg, logger: logger}
}

// AddressInput mirrors one entry of the addresses array.
type AddressInput struct {
	AddressLine1 string `json:"address_line1" validate:"required,min=5,max=200"`
	AddressLine2 string `json:"address_line2" validate:"max=200"`
	City         string `json:"city" validate:"required,min=2,max=50"`
	State        string `json:"state" validate:"required,min=2,max=50"`
	PinCode      string `json:"pin_code" validate:"required,len=6,digits"`
	Country      string `json:"country" validate:"max=100"`
	IsPrimary    bool   `json:"is_primary"`
}

// Input is the body of both create and update; update is a full replace.
type Input struct {
	FirstName   string         `json:"first_name" validate:"required,min=2,max=50"`
	LastName    string         `json:"last_name" validate:"required,min=2,max=50"`
	PhoneNumber string         `json:"phone_number" validate:"required,len=10,digits"`
	Email       string         `json:"email" validate:"omitempty,email,max=255"`
	Addresses   []AddressInput `json:"addresses" validate:"omitempty,dive"`
}

func (in Input) normalized() Input {
	out := Input{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
	}
	if len(in.Addresses) > 0 {
		out.Addresses = make([]AddressInput, len(in.Addresses))
		for i, a := range in.Addresses {
			out.Addresses[i] = AddressInput{
				AddressLine1: strings.TrimSpace(a.AddressLine1),
				AddressLine2: strings.TrimSpace(a.AddressLine2),
				City:         strings.TrimSpace(a.City),
				State:        strings.TrimSpace(a.State),
				PinCode:      strings.TrimSpace(a.PinCode),
				Country:      strings.TrimSpace(a.Country),
				IsPrimary:    a.IsPrimary,
			}
		}
	}
	return out
}

func (in Input) customer(id int64) domain.Customer {
	return domain.Customer{
		ID:          id,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
	}
}

// Create inserts the customer and its initial addresses. Either everything
// is stored or nothing is.
func (s *Service) Create(ctx context.Context, in Input) (*domain.Customer, error) {
	in = in.normalized()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var created *domain.Customer
	err := s.store.WithinTx(ctx, func(r store.Repos) error {
		if err := checkUnique(ctx, r, in, 0); err != nil {
			return err
		}
		c, err := r.Customers().Create(ctx, in.customer(0))
		if err != nil {
			return err
		}
		if err := s.insertAddresses(ctx, r, c.ID, in.Addresses); err != nil {
			return err
		}
		created, err = s.settle(ctx, r, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the customer's fields and its whole address set. An
// empty or absent address list leaves the customer with no addresses.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*domain.Customer, error) {
	in = in.normalized()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var updated *domain.Customer
	err := s.store.WithinTx(ctx, func(r store.Repos) error {
		if err := r.Customers().Lock(ctx, id); err != nil {
			return err
		}
		if err := checkUnique(ctx, r, in, id); err != nil {
			return err
		}
		c, err := r.Customers().Update(ctx, in.customer(id))
		if err != nil {
			return err
		}
		removed, err := r.Addresses().DeleteByCustomer(ctx, id)
		if err != nil {
			return fmt.Errorf("delete addresses: %w", err)
		}
		if err := s.insertAddresses(ctx, r, id, in.Addresses); err != nil {
			return err
		}
		s.logger.Printf("customer service: customer id=%d replaced %d addresses with %d", id, removed, len(in.Addresses))
		updated, err = s.settle(ctx, r, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the customer; its addresses go with it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.WithinTx(ctx, func(r store.Repos) error {
		if err := r.Customers().Lock(ctx, id); err != nil {
			return err
		}
		return r.Customers().Delete(ctx, id)
	})
}

// Get returns the customer with its addresses, primary first.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	r := s.store.Repos()
	c, err := r.Customers().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	addrs, err := r.Addresses().ListByCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	c.Addresses = nonNil(addrs)
	return c, nil
}

func (s *Service) List(ctx context.Context, q domain.CustomerQuery) (*domain.CustomerPage, error) {
	q.PageRequest = q.PageRequest.Normalize(s.cfg.DefaultPageLimit, s.cfg.MaxPageLimit)
	r := s.store.Repos()
	list, total, err := r.Customers().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	if err := attachAddresses(ctx, r, list); err != nil {
		return nil, err
	}
	return &domain.CustomerPage{
		Customers:  nonNil(list),
		Pagination: domain.NewPagination(q.PageRequest, total),
	}, nil
}

// ListWithMultipleAddresses counts live addresses rather than trusting the
// stored flags; most addresses first.
func (s *Service) ListWithMultipleAddresses(ctx context.Context) ([]domain.Customer, error) {
	return s.listByCount(ctx, customerrepo.MultipleAddresses)
}

// ListWithSingleAddress returns customers owning exactly one address,
// newest first.
func (s *Service) ListWithSingleAddress(ctx context.Context) ([]domain.Customer, error) {
	return s.listByCount(ctx, customerrepo.SingleAddress)
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	st, err := s.store.Repos().Customers().Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("customer stats: %w", err)
	}
	return st, nil
}

func (s *Service) listByCount(ctx context.Context, f customerrepo.CountFilter) ([]domain.Customer, error) {
	r := s.store.Repos()
	list, err := r.Customers().ListByAddressCount(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list customers by address count: %w", err)
	}
	if err := attachAddresses(ctx, r, list); err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

// insertAddresses stores the batch in order. A primary entry clears every
// primary stored before it, so the last primary in the list wins.
func (s *Service) insertAddresses(ctx context.Context, r store.Repos, customerID int64, in []AddressInput) error {
	for i, a := range in {
		if a.IsPrimary {
			if err := s.maintainer.ClaimPrimary(ctx, r, customerID, 0); err != nil {
				return err
			}
		}
		country := a.Country
		if country == "" {
			country = s.cfg.DefaultCountry
		}
		_, err := r.Addresses().Create(ctx, domain.Address{
			CustomerID:   customerID,
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			City:         a.City,
			State:        a.State,
			PinCode:      a.PinCode,
			Country:      country,
			IsPrimary:    a.IsPrimary,
		})
		if err != nil {
			return fmt.Errorf("insert address %d: %w", i, err)
		}
	}
	return nil
}

// settle recomputes the flags and reloads the address set inside the
// transaction so the returned aggregate matches what commits.
func (s *Service) settle(ctx context.Context, r store.Repos, c *domain.Customer) (*domain.Customer, error) {
	flags, err := s.maintainer.Refresh(ctx, r, c.ID)
	if err != nil {
		return nil, err
	}
	c.HasMultipleAddresses = flags.HasMultipleAddresses
	c.OnlyOneAddress = flags.OnlyOneAddress
	addrs, err := r.Addresses().ListByCustomer(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	c.Addresses = nonNil(addrs)
	return c, nil
}

func checkUnique(ctx context.Context, r store.Repos, in Input, excludeID int64) error {
	taken, err := r.Customers().PhoneTaken(ctx, in.PhoneNumber, excludeID)
	if err != nil {
		return fmt.Errorf("check phone: %w", err)
	}
	if taken {
		return domain.ErrDuplicatePhone
	}
	if in.Email == "" {
		return nil
	}
	taken, err = r.Customers().EmailTaken(ctx, in.Email, excludeID)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.ErrDuplicateEmail
	}
	return nil
}

func attachAddresses(ctx context.Context, r store.Repos, list []domain.Customer) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	for i, c := range list {
		ids[i] = c.ID
	}
	byCustomer, err := r.Addresses().ListByCustomers(ctx, ids)
	if err != nil {
		return fmt.Errorf("list addresses: %w", err)
	}
	for i := range list {
		list[i].Addresses = nonNil(byCustomer[list[i].ID])
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
