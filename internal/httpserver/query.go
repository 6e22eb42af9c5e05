package httpserver

import (
	"fmt"

	"customer-address-manager/internal/domain"
	"customer-address-manager/internal/validation"
	"github.com/gin-gonic/gin"
)

type customerListParams struct {
	Page    *int   `form:"page" validate:"omitempty,gte=1,lte=1000000"`
	Limit   *int   `form:"limit" validate:"omitempty,gte=1"`
	Search  string `form:"search" validate:"max=100"`
	City    string `form:"city" validate:"max=50"`
	State   string `form:"state" validate:"max=50"`
	PinCode string `form:"pin_code" validate:"max=6"`
	Sort    string `form:"sort" validate:"omitempty,oneof=first_name last_name created_at phone_number"`
	Order   string `form:"order" validate:"omitempty,oneof=asc desc"`
}

type addressListParams struct {
	Page       *int   `form:"page" validate:"omitempty,gte=1,lte=1000000"`
	Limit      *int   `form:"limit" validate:"omitempty,gte=1"`
	CustomerID int64  `form:"customer_id" validate:"omitempty,gt=0"`
	City       string `form:"city" validate:"max=50"`
	State      string `form:"state" validate:"max=50"`
	PinCode    string `form:"pin_code" validate:"max=6"`
	Sort       string `form:"sort" validate:"omitempty,oneof=city state created_at"`
	Order      string `form:"order" validate:"omitempty,oneof=asc desc"`
}

func (h *handlers) customerQuery(c *gin.Context) (domain.CustomerQuery, error) {
	var p customerListParams
	if err := bindQuery(c, &p, &p.Limit, h.maxPageLimit); err != nil {
		return domain.CustomerQuery{}, err
	}
	return domain.CustomerQuery{
		PageRequest: pageRequest(p.Page, p.Limit),
		Search:      p.Search,
		City:        p.City,
		State:       p.State,
		PinCode:     p.PinCode,
		Sort:        p.Sort,
		Order:       order(p.Order),
	}, nil
}

func (h *handlers) addressQuery(c *gin.Context) (domain.AddressQuery, error) {
	var p addressListParams
	if err := bindQuery(c, &p, &p.Limit, h.maxPageLimit); err != nil {
		return domain.AddressQuery{}, err
	}
	return domain.AddressQuery{
		PageRequest: pageRequest(p.Page, p.Limit),
		CustomerID:  p.CustomerID,
		City:        p.City,
		State:       p.State,
		PinCode:     p.PinCode,
		Sort:        p.Sort,
		Order:       order(p.Order),
	}, nil
}

// bindQuery decodes and validates query parameters. limit points at dst's
// limit field, which is checked against the configured maximum.
func bindQuery(c *gin.Context, dst any, limit **int, maxLimit int) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return domain.NewValidationError("query", "contains a malformed value")
	}
	if err := validation.Struct(dst); err != nil {
		return err
	}
	if l := *limit; l != nil && *l > maxLimit {
		return domain.NewValidationError("limit", fmt.Sprintf("must be less than or equal to %d", maxLimit))
	}
	return nil
}

// pageRequest leaves absent values at zero; the services fill in defaults.
func pageRequest(page, limit *int) domain.PageRequest {
	var p domain.PageRequest
	if page != nil {
		p.Page = *page
	}
	if limit != nil {
		p.Limit = *limit
	}
	return p
}

func order(s string) domain.SortOrder {
	if s == string(domain.SortAsc) {
		return domain.SortAsc
	}
	return domain.SortDesc
}
