package domain

import (
	"sort"
	"time"
)

// Address belongs to exactly one customer and is removed with it.
type Address struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PinCode      string    `json:"pin_code"`
	Country      string    `json:"country"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AddressDetail is an address joined with its owner's identifying fields.
type AddressDetail struct {
	Address
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
}

// SortAddresses orders addresses primary first, then oldest first.
func SortAddresses(list []Address) {
	sort.SliceStable(list, func(i, j int) bool {
		return addressBefore(list[i], list[j])
	})
}

func addressBefore(a, b Address) bool {
	if a.IsPrimary != b.IsPrimary {
		return a.IsPrimary
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
