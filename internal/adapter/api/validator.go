package api

import (
	"github.com/go-playground/validator/v10"
)

// Validator adapts validator/v10 to echo.Validator. The websocket dispatcher
// uses the same instance for inbound payloads.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
