package httpserver

import (
	"net/http"

	customersvc "customer-address-manager/internal/service/customer"
	"github.com/gin-gonic/gin"
)

func (h *handlers) listCustomers(c *gin.Context) {
	q, err := h.customerQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.customers.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondPage(c, page.Customers, page.Pagination)
}

func (h *handlers) getCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", customer)
}

func (h *handlers) createCustomer(c *gin.Context) {
	var in customersvc.Input
	if !bindBody(c, &in) {
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Customer created successfully", customer)
}

func (h *handlers) updateCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var in customersvc.Input
	if !bindBody(c, &in) {
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Customer updated successfully", customer)
}

func (h *handlers) deleteCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.customers.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Customer deleted successfully", nil)
}

func (h *handlers) customersWithMultipleAddresses(c *gin.Context) {
	list, err := h.customers.ListWithMultipleAddresses(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *handlers) customersWithSingleAddress(c *gin.Context) {
	list, err := h.customers.ListWithSingleAddress(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *handlers) dashboardStats(c *gin.Context) {
	stats, err := h.customers.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}
