package validate

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// currencyPattern matches ISO 4217 alphabetic currency codes in either case.
// Stripe's canonical form is lowercase, merchants commonly send uppercase.
var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// New returns a validator with the custom payment rules registered.
func New() *validator.Validate {
	v := validator.New()
	CustomValidate(v)
	return v
}

// CustomValidate registers custom validation rules on the given validator.
func CustomValidate(v *validator.Validate) {
	_ = v.RegisterValidation("currency", validCurrency)
}

func validCurrency(fl validator.FieldLevel) bool {
	return currencyPattern.MatchString(fl.Field().String())
}
