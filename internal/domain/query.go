package domain

import "math"

// SortOrder is the direction of a list sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PageRequest is a 1-based page and its size.
type PageRequest struct {
	Page  int
	Limit int
}

// Offset converts the page into a row offset. It saturates at math.MaxInt
// instead of wrapping around.
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Pagination is returned alongside every list response.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes page metadata for total matching rows.
func NewPagination(p PageRequest, total int) Pagination {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// CustomerQuery filters the customer list. City, State and PinCode match
// customers owning at least one address containing the value.
type CustomerQuery struct {
	PageRequest
	Search  string
	City    string
	State   string
	PinCode string
	Sort    string
	Order   SortOrder
}

// CustomerSortFields is the allow-list for CustomerQuery.Sort.
var CustomerSortFields = []string{"first_name", "last_name", "created_at", "phone_number"}

// AddressQuery filters the address list.
type AddressQuery struct {
	PageRequest
	CustomerID int64
	City       string
	State      string
	PinCode    string
	Sort       string
	Order      SortOrder
}

// AddressSortFields is the allow-list for AddressQuery.Sort.
var AddressSortFields = []string{"city", "state", "created_at"}

// CustomerPage is one page of customers with nested addresses.
type CustomerPage struct {
	Customers  []Customer
	Pagination Pagination
}

// AddressPage is one page of addresses joined with owner fields.
type AddressPage struct {
	Addresses  []AddressDetail
	Pagination Pagination
}

// Normalize clamps the page to >= 1 and the limit to (0, maxLimit],
// substituting defaultLimit when none was given.
func (p PageRequest) Normalize(defaultLimit, maxLimit int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
