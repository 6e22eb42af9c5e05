package httpserver

import (
	"net/http"

	addresssvc "customer-address-manager/internal/service/address"
	"github.com/gin-gonic/gin"
)

func (h *handlers) listAddresses(c *gin.Context) {
	q, err := h.addressQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.addresses.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondPage(c, page.Addresses, page.Pagination)
}

func (h *handlers) getAddress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	address, err := h.addresses.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", address)
}

func (h *handlers) addressesForCustomer(c *gin.Context) {
	id, err := pathID(c, "customerId")
	if err != nil {
		h.fail(c, err)
		return
	}
	list, err := h.addresses.ListForCustomer(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

func (h *handlers) createAddress(c *gin.Context) {
	var in addresssvc.CreateInput
	if !bindBody(c, &in) {
		return
	}
	address, err := h.addresses.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Address created successfully", address)
}

// updateAddress ignores any customer_id in the body; addresses keep their
// owner.
func (h *handlers) updateAddress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var in addresssvc.UpdateInput
	if !bindBody(c, &in) {
		return
	}
	address, err := h.addresses.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Address updated successfully", address)
}

func (h *handlers) deleteAddress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.addresses.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Address deleted successfully", nil)
}
