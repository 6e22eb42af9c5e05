package domain

import "time"

// Customer is the aggregate root owning zero or more addresses.
type Customer struct {
	ID                   int64     `json:"id"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	PhoneNumber          string    `json:"phone_number"`
	Email                string    `json:"email,omitempty"`
	HasMultipleAddresses bool      `json:"has_multiple_addresses"`
	OnlyOneAddress       bool      `json:"only_one_address"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Addresses            []Address `json:"addresses"`
	AddressCount         *int      `json:"address_count,omitempty"`
}

// AddressFlags returns the derived flag pair for a live address count.
// The two values are never both true.
func AddressFlags(count int) (multiple, single bool) {
	return count > 1, count == 1
}

// FlagsMatch reports whether the stored flags agree with count.
func (c Customer) FlagsMatch(count int) bool {
	multiple, single := AddressFlags(count)
	return c.HasMultipleAddresses == multiple && c.OnlyOneAddress == single
}

// Stats backs the dashboard summary.
type Stats struct {
	TotalCustomers          int `json:"total_customers"`
	TotalAddresses          int `json:"total_addresses"`
	CustomersWithMultiple   int `json:"customers_with_multiple_addresses"`
	CustomersWithSingle     int `json:"customers_with_single_address"`
	CustomersWithoutAddress int `json:"customers_without_address"`
}
