// Package consistency keeps a customer's derived address flags and primary
// address exclusivity in line with its live address set. Every method that
// takes store.Repos runs on the caller's transaction, so a failure here rolls
// back the mutation that triggered it.
package consistency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"customer-address-manager/internal/domain"
	"customer-address-manager/internal/observability"
	"customer-address-manager/internal/repository/store"
)

// Flags is the derived state stored on a customer.
type Flags struct {
	HasMultipleAddresses bool
	OnlyOneAddress       bool
}

func (f Flags) state() string {
	switch {
	case f.HasMultipleAddresses:
		return "multiple"
	case f.OnlyOneAddress:
		return "single"
	default:
		return "none"
	}
}

type Maintainer struct {
	logger  *log.Logger
	metrics *observability.Metrics
}

// NewMaintainer accepts nil for either argument.
func NewMaintainer(logger *log.Logger, metrics *observability.Metrics) *Maintainer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Maintainer{logger: logger, metrics: metrics}
}

// Refresh recomputes both flags from the current address count and stores
// them. Calling it again without an address change writes the same values.
func (m *Maintainer) Refresh(ctx context.Context, r store.Repos, customerID int64) (Flags, error) {
	count, err := r.Addresses().CountByCustomer(ctx, customerID)
	if err != nil {
		return Flags{}, fmt.Errorf("count addresses: %w", err)
	}
	multiple, single := domain.AddressFlags(count)
	if err := r.Customers().SetAddressFlags(ctx, customerID, multiple, single); err != nil {
		return Flags{}, fmt.Errorf("set address flags: %w", err)
	}
	f := Flags{HasMultipleAddresses: multiple, OnlyOneAddress: single}
	m.metrics.FlagsRefreshed(f.state())
	return f, nil
}

// ClaimPrimary clears is_primary on every address of the customer other than
// addressID. Pass 0 before inserting a new primary address. The caller must
// hold the customer lock so that two claims for one customer cannot
// interleave.
func (m *Maintainer) ClaimPrimary(ctx context.Context, r store.Repos, customerID, addressID int64) error {
	if err := r.Addresses().ClearPrimary(ctx, customerID, addressID); err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}
	m.metrics.PrimaryClaimed()
	return nil
}

// RefreshAll walks every customer and rewrites flags that disagree with the
// live address count, one transaction per customer. It returns the number of
// customers that were repaired.
func (m *Maintainer) RefreshAll(ctx context.Context, mgr store.Manager) (int, error) {
	ids, err := mgr.Repos().Customers().ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list customers: %w", err)
	}

	repaired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		var drifted bool
		err := mgr.WithinTx(ctx, func(r store.Repos) error {
			if err := r.Customers().Lock(ctx, id); err != nil {
				return err
			}
			c, err := r.Customers().GetByID(ctx, id)
			if err != nil {
				return err
			}
			count, err := r.Addresses().CountByCustomer(ctx, id)
			if err != nil {
				return err
			}
			if c.FlagsMatch(count) {
				return nil
			}
			drifted = true
			_, err = m.Refresh(ctx, r, id)
			return err
		})
		if err != nil {
			if errors.Is(err, domain.ErrCustomerNotFound) {
				// deleted since ListIDs
				continue
			}
			return repaired, fmt.Errorf("customer %d: %w", id, err)
		}
		if drifted {
			m.logger.Printf("consistency: repaired flags for customer id=%d", id)
			repaired++
		}
	}
	m.metrics.FlagsRepaired(repaired)
	return repaired, nil
}
