package checkout

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// Form is what the shopper submits to pay.
type Form struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,phone"`
	CouponCode string `json:"couponCode" validate:"omitempty,max=64"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", validatePhone)
	return v
}

// validatePhone accepts 10 to 15 digits, optionally separated by spaces,
// dashes, parentheses or a leading plus.
func validatePhone(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	for _, r := range raw {
		if !unicode.IsDigit(r) && !strings.ContainsRune(" +-()", r) {
			return false
		}
	}
	n := len(digitsOnly(raw))
	return n >= minPhoneDigits && n <= maxPhoneDigits
}

// NormalizePhone rewrites local Kenyan numbers into the 254 international
// form. Anything it does not recognize is returned as its digits.
func NormalizePhone(raw string) string {
	digits := digitsOnly(raw)
	switch {
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return "254" + digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, "254"):
		return digits
	case len(digits) == 9:
		return "254" + digits
	default:
		return digits
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
