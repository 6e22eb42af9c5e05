package customer

import (
	"context"
	"errors"
	"testing"

	"customer-address-manager/internal/domain"
	addressrepo "customer-address-manager/internal/repository/address"
	"customer-address-manager/internal/repository/memory"
	"customer-address-manager/internal/repository/store"
	"customer-address-manager/internal/service/consistency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(st store.Manager) *Service {
	return New(st, consistency.NewMaintainer(nil, nil), Config{DefaultCountry: "India"}, nil)
}

func annInput(addresses ...AddressInput) Input {
	return Input{
		FirstName:   "Ann",
		LastName:    "Lee",
		PhoneNumber: "5551112222",
		Addresses:   addresses,
	}
}

func oakStreet(primary bool) AddressInput {
	return AddressInput{
		AddressLine1: "12 Oak St",
		City:         "Springfield",
		State:        "IL",
		PinCode:      "620001",
		IsPrimary:    primary,
	}
}

func primaryCount(list []domain.Address) int {
	n := 0
	for _, a := range list {
		if a.IsPrimary {
			n++
		}
	}
	return n
}

func TestCreateWithOnePrimaryAddress(t *testing.T) {
	st := memory.New()
	svc := newService(st)

	created, err := svc.Create(context.Background(), annInput(oakStreet(true)))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, got.OnlyOneAddress)
	assert.False(t, got.HasMultipleAddresses)
	require.Len(t, got.Addresses, 1)
	assert.True(t, got.Addresses[0].IsPrimary)
	assert.Equal(t, "India", got.Addresses[0].Country)
}

func TestCreateWithoutAddresses(t *testing.T) {
	svc := newService(memory.New())

	created, err := svc.Create(context.Background(), annInput())
	require.NoError(t, err)
	assert.False(t, created.OnlyOneAddress)
	assert.False(t, created.HasMultipleAddresses)
	assert.Empty(t, created.Addresses)
}

func TestCreateLastPrimaryInBatchWins(t *testing.T) {
	svc := newService(memory.New())
	second := oakStreet(true)
	second.City = "Shelbyville"

	created, err := svc.Create(context.Background(), annInput(oakStreet(true), second, oakStreet(false)))
	require.NoError(t, err)

	require.Len(t, created.Addresses, 3)
	assert.Equal(t, 1, primaryCount(created.Addresses))
	assert.Equal(t, "Shelbyville", created.Addresses[0].City)
	assert.True(t, created.HasMultipleAddresses)
}

func TestCreateDuplicatePhoneAndEmail(t *testing.T) {
	svc := newService(memory.New())
	in := annInput()
	in.Email = "ann@example.com"
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	dupPhone := annInput()
	dupPhone.FirstName = "Bo"
	_, err = svc.Create(context.Background(), dupPhone)
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	dupEmail := annInput()
	dupEmail.PhoneNumber = "5559998888"
	dupEmail.Email = " Ann@Example.com "
	_, err = svc.Create(context.Background(), dupEmail)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	noEmail := annInput()
	noEmail.PhoneNumber = "5559998887"
	_, err = svc.Create(context.Background(), noEmail)
	assert.NoError(t, err)
}

func TestCreateValidationIsItemized(t *testing.T) {
	svc := newService(memory.New())
	bad := oakStreet(false)
	bad.PinCode = "12ab56"

	_, err := svc.Create(context.Background(), Input{
		FirstName:   "A",
		LastName:    "Lee",
		PhoneNumber: "12345",
		Email:       "not-an-email",
		Addresses:   []AddressInput{bad},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "must be at least 2 characters", fields["first_name"])
	assert.Equal(t, "must be exactly 10 characters", fields["phone_number"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must contain only digits", fields["addresses[0].pin_code"])
}

func TestUpdateReplacesAddressSet(t *testing.T) {
	svc := newService(memory.New())
	created, err := svc.Create(context.Background(), annInput(oakStreet(true), oakStreet(false)))
	require.NoError(t, err)
	oldIDs := map[int64]bool{}
	for _, a := range created.Addresses {
		oldIDs[a.ID] = true
	}

	replacement := oakStreet(false)
	replacement.City = "Capital City"
	updated, err := svc.Update(context.Background(), created.ID, annInput(replacement))
	require.NoError(t, err)

	require.Len(t, updated.Addresses, 1)
	assert.False(t, oldIDs[updated.Addresses[0].ID])
	assert.Equal(t, "Capital City", updated.Addresses[0].City)
	assert.True(t, updated.OnlyOneAddress)
	assert.False(t, updated.HasMultipleAddresses)
}

func TestUpdateWithEmptyListRemovesAll(t *testing.T) {
	svc := newService(memory.New())
	created, err := svc.Create(context.Background(), annInput(oakStreet(true)))
	require.NoError(t, err)

	in := annInput()
	in.Addresses = []AddressInput{}
	_, err = svc.Update(context.Background(), created.ID, in)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Addresses)
	assert.False(t, got.HasMultipleAddresses)
	assert.False(t, got.OnlyOneAddress)
}

func TestUpdateUniquenessExcludesSelf(t *testing.T) {
	svc := newService(memory.New())
	ann, err := svc.Create(context.Background(), annInput())
	require.NoError(t, err)
	bo := annInput()
	bo.FirstName, bo.PhoneNumber = "Bo", "5553334444"
	_, err = svc.Create(context.Background(), bo)
	require.NoError(t, err)

	same := annInput()
	same.LastName = "Leeson"
	updated, err := svc.Update(context.Background(), ann.ID, same)
	require.NoError(t, err)
	assert.Equal(t, "Leeson", updated.LastName)

	steal := annInput()
	steal.PhoneNumber = "5553334444"
	_, err = svc.Update(context.Background(), ann.ID, steal)
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)
}

func TestUpdateMissingCustomer(t *testing.T) {
	svc := newService(memory.New())
	_, err := svc.Update(context.Background(), 77, annInput())
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	created, err := svc.Create(context.Background(), annInput(oakStreet(true), oakStreet(false), oakStreet(false)))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	n, err := st.Repos().Addresses().CountByCustomer(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), domain.ErrCustomerNotFound)
}

// failingAddresses fails the nth address insert of a transaction.
type failingAddresses struct {
	addressrepo.Repository
	failAt int
	calls  int
}

func (f *failingAddresses) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	f.calls++
	if f.calls == f.failAt {
		return nil, errors.New("disk full")
	}
	return f.Repository.Create(ctx, a)
}

type failingRepos struct {
	store.Repos
	addresses *failingAddresses
}

func (r failingRepos) Addresses() addressrepo.Repository { return r.addresses }

type failingStore struct {
	*memory.Store
	failAt int
}

func (s failingStore) WithinTx(ctx context.Context, fn func(store.Repos) error) error {
	return s.Store.WithinTx(ctx, func(r store.Repos) error {
		return fn(failingRepos{Repos: r, addresses: &failingAddresses{Repository: r.Addresses(), failAt: s.failAt}})
	})
}

func TestCreateIsAtomicWhenAnAddressFails(t *testing.T) {
	st := memory.New()
	svc := newService(failingStore{Store: st, failAt: 2})

	_, err := svc.Create(context.Background(), annInput(oakStreet(true), oakStreet(false)))
	require.Error(t, err)

	stats, err := st.Repos().Customers().Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCustomers)
	assert.Zero(t, stats.TotalAddresses)
}

func TestUpdateIsAtomicWhenAnAddressFails(t *testing.T) {
	st := memory.New()
	created, err := newService(st).Create(context.Background(), annInput(oakStreet(true)))
	require.NoError(t, err)

	in := annInput(oakStreet(false))
	in.FirstName = "Annabel"
	_, err = newService(failingStore{Store: st, failAt: 1}).Update(context.Background(), created.ID, in)
	require.Error(t, err)

	got, err := newService(st).Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)
	require.Len(t, got.Addresses, 1)
	assert.Equal(t, created.Addresses[0].ID, got.Addresses[0].ID)
	assert.True(t, got.OnlyOneAddress)
}

func TestListPaginatesAndNestsAddresses(t *testing.T) {
	svc := newService(memory.New())
	phones := []string{"5550000001", "5550000002", "5550000003"}
	for _, p := range phones {
		in := annInput(oakStreet(false))
		in.PhoneNumber = p
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), domain.CustomerQuery{
		PageRequest: domain.PageRequest{Page: 1, Limit: 2},
		Sort:        "phone_number",
		Order:       domain.SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, page.Customers, 2)
	assert.Equal(t, "5550000001", page.Customers[0].PhoneNumber)
	assert.Len(t, page.Customers[0].Addresses, 1)
	assert.Equal(t, domain.Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2, HasNext: true, HasPrev: false}, page.Pagination)

	page, err = svc.List(context.Background(), domain.CustomerQuery{})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Pagination.Limit)
	assert.Equal(t, 1, page.Pagination.Page)
}

func TestAddressCountViewsReadLiveAddresses(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	one, err := svc.Create(context.Background(), annInput(oakStreet(false)))
	require.NoError(t, err)
	in := annInput(oakStreet(false), oakStreet(false))
	in.PhoneNumber = "5550000002"
	two, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	// stale stored flags must not matter
	require.NoError(t, st.Repos().Customers().SetAddressFlags(context.Background(), one.ID, false, false))

	multi, err := svc.ListWithMultipleAddresses(context.Background())
	require.NoError(t, err)
	require.Len(t, multi, 1)
	assert.Equal(t, two.ID, multi[0].ID)
	assert.Len(t, multi[0].Addresses, 2)

	single, err := svc.ListWithSingleAddress(context.Background())
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, one.ID, single[0].ID)
	assert.Equal(t, 1, *single[0].AddressCount)
}

func TestStats(t *testing.T) {
	svc := newService(memory.New())
	_, err := svc.Create(context.Background(), annInput(oakStreet(false)))
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCustomers)
	assert.Equal(t, 1, stats.CustomersWithSingle)
}
