package validation

import (
	"errors"
	"testing"

	"customer-address-manager/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleLine struct {
	City    string `json:"city" validate:"required,min=2,max=50"`
	PinCode string `json:"pin_code" validate:"required,len=6,digits"`
}

type sampleInput struct {
	Name  string       `json:"name" validate:"required,min=2,max=50"`
	Phone string       `json:"phone_number" validate:"required,len=10,digits"`
	Email string       `json:"email" validate:"omitempty,email"`
	Sort  string       `form:"sort" validate:"omitempty,oneof=city state"`
	Lines []sampleLine `json:"lines" validate:"omitempty,dive"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(sampleInput{
		Name:  "Ann",
		Phone: "5551112222",
		Email: "ann@example.com",
		Lines: []sampleLine{{City: "Springfield", PinCode: "620001"}},
	})
	assert.NoError(t, err)
}

func TestStruct_ItemizesEveryField(t *testing.T) {
	err := Struct(sampleInput{
		Name:  "A",
		Phone: "55511a2222",
		Email: "not-an-email",
		Sort:  "pin",
		Lines: []sampleLine{{City: "", PinCode: "12345"}},
	})

	fields := fieldsOf(t, err)
	assert.Equal(t, "must be at least 2 characters", fields["name"])
	assert.Equal(t, "must contain only digits", fields["phone_number"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be one of: city, state", fields["sort"])
	assert.Equal(t, "is required", fields["lines[0].city"])
	assert.Equal(t, "must be exactly 6 characters", fields["lines[0].pin_code"])
}

func TestStruct_PhoneLength(t *testing.T) {
	err := Struct(sampleInput{Name: "Ann", Phone: "555111222"})

	fields := fieldsOf(t, err)
	assert.Equal(t, "must be exactly 10 characters", fields["phone_number"])
}

func TestValidationError_Message(t *testing.T) {
	err := &domain.ValidationError{Fields: []domain.FieldError{
		{Field: "city", Message: "is required"},
		{Field: "state", Message: "is required"},
	}}
	assert.Equal(t, "validation failed: city: is required; state: is required", err.Error())
}
