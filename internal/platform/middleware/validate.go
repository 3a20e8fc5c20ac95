package middleware

import (
	"github.com/go-playground/validator/v10"

	"github.com/medbook/medbook/internal/apperr"
)

// Validator adapts go-playground/validator to echo's Validator interface.
// Request DTOs declare their field rules with `validate:` tags; cross-field
// and cross-row rules stay in the services.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return apperr.Validation("invalid request: %v", err)
	}
	return nil
}
