// Package memory is an in-process implementation of store.Manager. It keeps
// the same constraints as the Postgres schema (unique phone/email, one
// primary address per customer, cascade delete) and serializes units of
// work with a single mutex, restoring a snapshot when one fails.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"customer-address-manager/internal/domain"
	addressrepo "customer-address-manager/internal/repository/address"
	customerrepo "customer-address-manager/internal/repository/customer"
	"customer-address-manager/internal/repository/store"
)

var (
	errPrimaryConflict = errors.New("memory: customer already has a primary address")
	errFlagConflict    = errors.New("memory: address flags cannot both be true")
)

type state struct {
	customers      map[int64]domain.Customer
	addresses      map[int64]domain.Address
	nextCustomerID int64
	nextAddressID  int64
}

func (s *state) clone() *state {
	out := &state{
		customers:      make(map[int64]domain.Customer, len(s.customers)),
		addresses:      make(map[int64]domain.Address, len(s.addresses)),
		nextCustomerID: s.nextCustomerID,
		nextAddressID:  s.nextAddressID,
	}
	for id, c := range s.customers {
		out.customers[id] = c
	}
	for id, a := range s.addresses {
		out.addresses[id] = a
	}
	return out
}

// Store implements store.Manager in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		state: &state{
			customers: make(map[int64]domain.Customer),
			addresses: make(map[int64]domain.Address),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Manager = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(r store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&repos{s: s, locker: noopLocker{}}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) Repos() store.Repos {
	return &repos{s: s, locker: &s.mu}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

type repos struct {
	s      *Store
	locker sync.Locker
}

func (r *repos) Customers() customerrepo.Repository { return &customers{r} }
func (r *repos) Addresses() addressrepo.Repository  { return &addresses{r} }

type customers struct{ *repos }

func (c *customers) Create(_ context.Context, in domain.Customer) (*domain.Customer, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	if err := c.checkUnique(in, 0); err != nil {
		return nil, err
	}
	st := c.s.state
	st.nextCustomerID++
	now := c.s.now()
	out := domain.Customer{
		ID:          st.nextCustomerID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	st.customers[out.ID] = out
	return &out, nil
}

func (c *customers) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	cust, ok := c.s.state.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &cust, nil
}

func (c *customers) Lock(_ context.Context, id int64) error {
	c.locker.Lock()
	defer c.locker.Unlock()

	if _, ok := c.s.state.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (c *customers) Update(_ context.Context, in domain.Customer) (*domain.Customer, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	st := c.s.state
	cur, ok := st.customers[in.ID]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	if err := c.checkUnique(in, in.ID); err != nil {
		return nil, err
	}
	cur.FirstName = in.FirstName
	cur.LastName = in.LastName
	cur.PhoneNumber = in.PhoneNumber
	cur.Email = in.Email
	cur.UpdatedAt = c.s.now()
	st.customers[cur.ID] = cur
	return &cur, nil
}

func (c *customers) Delete(_ context.Context, id int64) error {
	c.locker.Lock()
	defer c.locker.Unlock()

	st := c.s.state
	if _, ok := st.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	delete(st.customers, id)
	for aid, a := range st.addresses {
		if a.CustomerID == id {
			delete(st.addresses, aid)
		}
	}
	return nil
}

func (c *customers) PhoneTaken(_ context.Context, phone string, excludeID int64) (bool, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	for _, cust := range c.s.state.customers {
		if cust.ID != excludeID && cust.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (c *customers) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	for _, cust := range c.s.state.customers {
		if cust.ID != excludeID && cust.Email != "" && strings.EqualFold(cust.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (c *customers) SetAddressFlags(_ context.Context, id int64, multiple, single bool) error {
	c.locker.Lock()
	defer c.locker.Unlock()

	if multiple && single {
		return errFlagConflict
	}
	st := c.s.state
	cur, ok := st.customers[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	cur.HasMultipleAddresses = multiple
	cur.OnlyOneAddress = single
	st.customers[id] = cur
	return nil
}

func (c *customers) List(_ context.Context, q domain.CustomerQuery) ([]domain.Customer, int, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	st := c.s.state
	var matched []domain.Customer
	for _, cust := range st.customers {
		if !matchesCustomer(st, cust, q) {
			continue
		}
		matched = append(matched, cust)
	}
	sortCustomers(matched, q.Sort, q.Order)
	return page(matched, q.PageRequest), len(matched), nil
}

func (c *customers) ListByAddressCount(_ context.Context, f customerrepo.CountFilter) ([]domain.Customer, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	st := c.s.state
	counts := addressCounts(st)
	var out []domain.Customer
	for id, n := range counts {
		if (f == customerrepo.MultipleAddresses && n > 1) || (f == customerrepo.SingleAddress && n == 1) {
			cust := st.customers[id]
			count := n
			cust.AddressCount = &count
			out = append(out, cust)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if f == customerrepo.MultipleAddresses {
			if *out[i].AddressCount != *out[j].AddressCount {
				return *out[i].AddressCount > *out[j].AddressCount
			}
			return out[i].ID < out[j].ID
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (c *customers) ListIDs(_ context.Context) ([]int64, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	ids := make([]int64, 0, len(c.s.state.customers))
	for id := range c.s.state.customers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (c *customers) Stats(_ context.Context) (domain.Stats, error) {
	c.locker.Lock()
	defer c.locker.Unlock()

	st := c.s.state
	counts := addressCounts(st)
	s := domain.Stats{
		TotalCustomers: len(st.customers),
		TotalAddresses: len(st.addresses),
	}
	for id := range st.customers {
		switch n := counts[id]; {
		case n > 1:
			s.CustomersWithMultiple++
		case n == 1:
			s.CustomersWithSingle++
		default:
			s.CustomersWithoutAddress++
		}
	}
	return s, nil
}

func (c *customers) checkUnique(in domain.Customer, selfID int64) error {
	for _, other := range c.s.state.customers {
		if other.ID == selfID {
			continue
		}
		if other.PhoneNumber == in.PhoneNumber {
			return domain.ErrDuplicatePhone
		}
		if in.Email != "" && strings.EqualFold(other.Email, in.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	return nil
}

type addresses struct{ *repos }

func (a *addresses) Create(_ context.Context, in domain.Address) (*domain.Address, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	st := a.s.state
	if _, ok := st.customers[in.CustomerID]; !ok {
		return nil, domain.ErrCustomerNotFound
	}
	if in.IsPrimary && hasOtherPrimary(st, in.CustomerID, 0) {
		return nil, errPrimaryConflict
	}
	st.nextAddressID++
	now := a.s.now()
	out := in
	out.ID = st.nextAddressID
	out.CreatedAt = now
	out.UpdatedAt = now
	st.addresses[out.ID] = out
	return &out, nil
}

func (a *addresses) GetByID(_ context.Context, id int64) (*domain.Address, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	addr, ok := a.s.state.addresses[id]
	if !ok {
		return nil, domain.ErrAddressNotFound
	}
	return &addr, nil
}

func (a *addresses) GetDetail(_ context.Context, id int64) (*domain.AddressDetail, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	st := a.s.state
	addr, ok := st.addresses[id]
	if !ok {
		return nil, domain.ErrAddressNotFound
	}
	d := detail(st, addr)
	return &d, nil
}

func (a *addresses) Update(_ context.Context, in domain.Address) (*domain.Address, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	st := a.s.state
	cur, ok := st.addresses[in.ID]
	if !ok {
		return nil, domain.ErrAddressNotFound
	}
	if in.IsPrimary && hasOtherPrimary(st, cur.CustomerID, cur.ID) {
		return nil, errPrimaryConflict
	}
	cur.AddressLine1 = in.AddressLine1
	cur.AddressLine2 = in.AddressLine2
	cur.City = in.City
	cur.State = in.State
	cur.PinCode = in.PinCode
	cur.Country = in.Country
	cur.IsPrimary = in.IsPrimary
	cur.UpdatedAt = a.s.now()
	st.addresses[cur.ID] = cur
	return &cur, nil
}

func (a *addresses) Delete(_ context.Context, id int64) error {
	a.locker.Lock()
	defer a.locker.Unlock()

	if _, ok := a.s.state.addresses[id]; !ok {
		return domain.ErrAddressNotFound
	}
	delete(a.s.state.addresses, id)
	return nil
}

func (a *addresses) DeleteByCustomer(_ context.Context, customerID int64) (int64, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	var n int64
	for id, addr := range a.s.state.addresses {
		if addr.CustomerID == customerID {
			delete(a.s.state.addresses, id)
			n++
		}
	}
	return n, nil
}

func (a *addresses) ClearPrimary(_ context.Context, customerID, exceptID int64) error {
	a.locker.Lock()
	defer a.locker.Unlock()

	now := a.s.now()
	for id, addr := range a.s.state.addresses {
		if addr.CustomerID == customerID && id != exceptID && addr.IsPrimary {
			addr.IsPrimary = false
			addr.UpdatedAt = now
			a.s.state.addresses[id] = addr
		}
	}
	return nil
}

func (a *addresses) CountByCustomer(_ context.Context, customerID int64) (int, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	return addressCounts(a.s.state)[customerID], nil
}

func (a *addresses) ListByCustomer(_ context.Context, customerID int64) ([]domain.Address, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	var out []domain.Address
	for _, addr := range a.s.state.addresses {
		if addr.CustomerID == customerID {
			out = append(out, addr)
		}
	}
	domain.SortAddresses(out)
	return out, nil
}

func (a *addresses) ListByCustomers(_ context.Context, customerIDs []int64) (map[int64][]domain.Address, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	wanted := make(map[int64]bool, len(customerIDs))
	for _, id := range customerIDs {
		wanted[id] = true
	}
	out := make(map[int64][]domain.Address, len(customerIDs))
	for _, addr := range a.s.state.addresses {
		if wanted[addr.CustomerID] {
			out[addr.CustomerID] = append(out[addr.CustomerID], addr)
		}
	}
	for id := range out {
		domain.SortAddresses(out[id])
	}
	return out, nil
}

func (a *addresses) List(_ context.Context, q domain.AddressQuery) ([]domain.AddressDetail, int, error) {
	a.locker.Lock()
	defer a.locker.Unlock()

	st := a.s.state
	var matched []domain.AddressDetail
	for _, addr := range st.addresses {
		if q.CustomerID > 0 && addr.CustomerID != q.CustomerID {
			continue
		}
		if !containsFold(addr.City, q.City) || !containsFold(addr.State, q.State) || !containsFold(addr.PinCode, q.PinCode) {
			continue
		}
		matched = append(matched, detail(st, addr))
	}
	sortDetails(matched, q.Sort, q.Order)
	return page(matched, q.PageRequest), len(matched), nil
}

func detail(st *state, addr domain.Address) domain.AddressDetail {
	owner := st.customers[addr.CustomerID]
	return domain.AddressDetail{
		Address:     addr,
		FirstName:   owner.FirstName,
		LastName:    owner.LastName,
		PhoneNumber: owner.PhoneNumber,
		Email:       owner.Email,
	}
}

func hasOtherPrimary(st *state, customerID, selfID int64) bool {
	for id, addr := range st.addresses {
		if addr.CustomerID == customerID && id != selfID && addr.IsPrimary {
			return true
		}
	}
	return false
}

func addressCounts(st *state) map[int64]int {
	counts := make(map[int64]int)
	for _, addr := range st.addresses {
		counts[addr.CustomerID]++
	}
	return counts
}

func matchesCustomer(st *state, c domain.Customer, q domain.CustomerQuery) bool {
	if s := strings.TrimSpace(q.Search); s != "" {
		fullName := c.FirstName + " " + c.LastName
		if !containsFold(c.FirstName, s) && !containsFold(c.LastName, s) && !containsFold(fullName, s) &&
			!containsFold(c.PhoneNumber, s) && (c.Email == "" || !containsFold(c.Email, s)) {
			return false
		}
	}
	if q.City == "" && q.State == "" && q.PinCode == "" {
		return true
	}
	check := func(value func(domain.Address) string, want string) bool {
		if strings.TrimSpace(want) == "" {
			return true
		}
		for _, addr := range st.addresses {
			if addr.CustomerID == c.ID && containsFold(value(addr), want) {
				return true
			}
		}
		return false
	}
	return check(func(a domain.Address) string { return a.City }, q.City) &&
		check(func(a domain.Address) string { return a.State }, q.State) &&
		check(func(a domain.Address) string { return a.PinCode }, q.PinCode)
}

func containsFold(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortCustomers(list []domain.Customer, field string, order domain.SortOrder) {
	key := func(c domain.Customer) string {
		switch field {
		case "first_name":
			return strings.ToLower(c.FirstName)
		case "last_name":
			return strings.ToLower(c.LastName)
		case "phone_number":
			return c.PhoneNumber
		}
		return ""
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		less, equal := a.ID < b.ID, a.ID == b.ID
		if ka, kb := key(a), key(b); ka != kb {
			less, equal = ka < kb, false
		} else if field == "" || field == "created_at" {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				less, equal = a.CreatedAt.Before(b.CreatedAt), false
			}
		}
		if equal {
			return false
		}
		if order == domain.SortAsc {
			return less
		}
		return !less
	})
}

func sortDetails(list []domain.AddressDetail, field string, order domain.SortOrder) {
	key := func(a domain.AddressDetail) string {
		switch field {
		case "city":
			return strings.ToLower(a.City)
		case "state":
			return strings.ToLower(a.State)
		}
		return ""
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		less, equal := a.ID < b.ID, a.ID == b.ID
		if ka, kb := key(a), key(b); ka != kb {
			less, equal = ka < kb, false
		} else if field == "" || field == "created_at" {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				less, equal = a.CreatedAt.Before(b.CreatedAt), false
			}
		}
		if equal {
			return false
		}
		if order == domain.SortAsc {
			return less
		}
		return !less
	})
}

func page[T any](list []T, p domain.PageRequest) []T {
	if p.Limit <= 0 {
		return list
	}
	start := p.Offset()
	if start >= len(list) {
		return nil
	}
	end := min(start+p.Limit, len(list))
	return list[start:end]
}
