package consistency

import (
	"context"
	"testing"

	"customer-address-manager/internal/domain"
	"customer-address-manager/internal/repository/memory"
	"customer-address-manager/internal/repository/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCustomer(t *testing.T, s *memory.Store, addresses int) int64 {
	t.Helper()
	ctx := context.Background()
	c, err := s.Repos().Customers().Create(ctx, domain.Customer{
		FirstName: "Ann", LastName: "Lee", PhoneNumber: "5551112222",
	})
	require.NoError(t, err)
	for i := 0; i < addresses; i++ {
		_, err := s.Repos().Addresses().Create(ctx, domain.Address{
			CustomerID: c.ID, AddressLine1: "12 Oak Street", City: "Pune", State: "MH", PinCode: "411001",
		})
		require.NoError(t, err)
	}
	return c.ID
}

func TestRefreshFollowsCount(t *testing.T) {
	cases := []struct {
		name      string
		addresses int
		want      Flags
	}{
		{"none", 0, Flags{}},
		{"one", 1, Flags{OnlyOneAddress: true}},
		{"two", 2, Flags{HasMultipleAddresses: true}},
		{"five", 5, Flags{HasMultipleAddresses: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := memory.New()
			id := seedCustomer(t, s, tc.addresses)
			m := NewMaintainer(nil, nil)

			got, err := m.Refresh(context.Background(), s.Repos(), id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			c, err := s.Repos().Customers().GetByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tc.want.HasMultipleAddresses, c.HasMultipleAddresses)
			assert.Equal(t, tc.want.OnlyOneAddress, c.OnlyOneAddress)
		})
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	s := memory.New()
	id := seedCustomer(t, s, 2)
	m := NewMaintainer(nil, nil)

	first, err := m.Refresh(context.Background(), s.Repos(), id)
	require.NoError(t, err)
	before, err := s.Repos().Customers().GetByID(context.Background(), id)
	require.NoError(t, err)

	second, err := m.Refresh(context.Background(), s.Repos(), id)
	require.NoError(t, err)
	after, err := s.Repos().Customers().GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, *before, *after)
}

func TestRefreshMissingCustomer(t *testing.T) {
	s := memory.New()
	_, err := NewMaintainer(nil, nil).Refresh(context.Background(), s.Repos(), 404)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestClaimPrimaryKeepsOnlyTarget(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	id := seedCustomer(t, s, 0)
	old, err := s.Repos().Addresses().Create(ctx, domain.Address{CustomerID: id, City: "Pune", IsPrimary: true})
	require.NoError(t, err)
	other, err := s.Repos().Addresses().Create(ctx, domain.Address{CustomerID: id, City: "Goa"})
	require.NoError(t, err)

	m := NewMaintainer(nil, nil)
	err = s.WithinTx(ctx, func(r store.Repos) error {
		if err := m.ClaimPrimary(ctx, r, id, other.ID); err != nil {
			return err
		}
		other.IsPrimary = true
		_, err := r.Addresses().Update(ctx, *other)
		return err
	})
	require.NoError(t, err)

	list, err := s.Repos().Addresses().ListByCustomer(ctx, id)
	require.NoError(t, err)
	primaries := 0
	for _, a := range list {
		if a.IsPrimary {
			primaries++
			assert.Equal(t, other.ID, a.ID)
		}
	}
	assert.Equal(t, 1, primaries)
	assert.NotEqual(t, old.ID, list[0].ID)
}

func TestRefreshAllRepairsDrift(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	id := seedCustomer(t, s, 2)
	// stored flags still say zero addresses
	m := NewMaintainer(nil, nil)

	repaired, err := m.RefreshAll(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	c, err := s.Repos().Customers().GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, c.HasMultipleAddresses)
	assert.False(t, c.OnlyOneAddress)

	repaired, err = m.RefreshAll(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
