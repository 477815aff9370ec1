// Package validation runs struct-tag validation over request payloads
// before they reach the service layer's own invariant checks.
package validation

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct validates a struct using its validate tags
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
