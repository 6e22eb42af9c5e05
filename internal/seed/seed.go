package seed

import (
	"context"
	"errors"
	"fmt"

	"customer-address-manager/internal/domain"
	customersvc "customer-address-manager/internal/service/customer"
)

type CustomerCreator interface {
	Create(ctx context.Context, in customersvc.Input) (*domain.Customer, error)
}

var demoCustomers = []customersvc.Input{
	{
		FirstName:   "Asha",
		LastName:    "Verma",
		PhoneNumber: "9876543210",
		Email:       "asha.verma@example.com",
		Addresses: []customersvc.AddressInput{
			{AddressLine1: "14 MG Road", City: "Bengaluru", State: "Karnataka", PinCode: "560001", IsPrimary: true},
			{AddressLine1: "22 Park Street", AddressLine2: "Flat 3B", City: "Kolkata", State: "West Bengal", PinCode: "700016"},
			{AddressLine1: "5 Marine Drive", City: "Mumbai", State: "Maharashtra", PinCode: "400020"},
		},
	},
	{
		FirstName:   "Rahul",
		LastName:    "Nair",
		PhoneNumber: "9123456780",
		Email:       "rahul.nair@example.com",
		Addresses: []customersvc.AddressInput{
			{AddressLine1: "7 Residency Road", City: "Kochi", State: "Kerala", PinCode: "682011", IsPrimary: true},
		},
	},
	{
		FirstName:   "Meera",
		LastName:    "Iyer",
		PhoneNumber: "9988776655",
		Addresses: []customersvc.AddressInput{
			{AddressLine1: "31 Anna Salai", City: "Chennai", State: "Tamil Nadu", PinCode: "600002"},
			{AddressLine1: "9 Banjara Hills", City: "Hyderabad", State: "Telangana", PinCode: "500034", IsPrimary: true},
		},
	},
	{
		FirstName:   "Vikram",
		LastName:    "Singh",
		PhoneNumber: "9012345678",
		Email:       "vikram.singh@example.com",
	},
}

// Apply creates the demo customers through the service. Customers whose
// phone or email is already taken are skipped, so re-running is safe.
func Apply(ctx context.Context, customers CustomerCreator) (created, skipped int, err error) {
	for _, in := range demoCustomers {
		if _, err := customers.Create(ctx, in); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("seed customer %s %s: %w", in.FirstName, in.LastName, err)
		}
		created++
	}
	return created, skipped, nil
}
