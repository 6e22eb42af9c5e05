package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"customer-address-manager/internal/domain"
	"github.com/gin-gonic/gin"
)

// envelope is the body of every API response.
type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       any                 `json:"data,omitempty"`
	Errors     []domain.FieldError `json:"errors,omitempty"`
	Pagination *domain.Pagination  `json:"pagination,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// publicErrors are the sentinels whose text is safe to show a client,
// most specific first.
var publicErrors = []error{
	domain.ErrDuplicatePhone,
	domain.ErrDuplicateEmail,
	domain.ErrCustomerNotFound,
	domain.ErrAddressNotFound,
	domain.ErrAlreadyExists,
	domain.ErrNotFound,
}

type handlers struct {
	customers    CustomerService
	addresses    AddressService
	logger       *log.Logger
	development  bool
	maxPageLimit int
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondPage(c *gin.Context, data any, p domain.Pagination) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

// fail maps err onto the error taxonomy: validation and conflicts are 400,
// missing entities 404, everything else a generic 500.
func (h *handlers) fail(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, envelope{Message: "Validation failed", Errors: verr.Fields})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusBadRequest, envelope{Message: publicMessage(err)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, envelope{Message: publicMessage(err)})
	default:
		h.logger.Printf("request_id=%s %s %s failed: %v", c.GetString(requestIDKey), c.Request.Method, c.Request.URL.Path, err)
		body := envelope{Message: "Internal server error"}
		if h.development {
			body.Error = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Message: message})
}

// bindBody decodes the JSON body into dst and writes the 400 itself when it
// cannot. A value of the wrong JSON type is reported against its field.
func bindBody(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		c.JSON(http.StatusBadRequest, envelope{
			Message: "Validation failed",
			Errors:  []domain.FieldError{{Field: typeErr.Field, Message: "must be of type " + typeErr.Type.String()}},
		})
		return false
	}
	badRequest(c, "Invalid request body")
	return false
}

func routeNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, envelope{Message: "Route not found"})
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, envelope{Message: "Method not allowed"})
}

func publicMessage(err error) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return capitalize(known.Error())
		}
	}
	return "Request failed"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}
