package service

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleCaser = cases.Title(language.Spanish)
	hundred    = decimal.NewFromInt(100)
)

// normalizeName trims, collapses inner whitespace and title-cases a person name.
func normalizeName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if n := len([]rune(name)); n < 2 || n > 100 {
		return "", validationError("name must be between 2 and 100 characters")
	}
	return titleCaser.String(name), nil
}

// normalizePhone strips common separators and requires 7 to 15 digits.
func normalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == '+':
		default:
			return "", validationError("phone may only contain digits")
		}
	}
	digits := b.String()
	if len(digits) < 7 || len(digits) > 15 {
		return "", validationError("phone must have between 7 and 15 digits")
	}
	return digits, nil
}

// normalizeEmail lower-cases the address; an empty address becomes nil.
func normalizeEmail(email string) *string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	return &email
}

func validateDiscount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return validationError("special discount must be between 0 and 100")
	}
	return checkCents("special discount", d)
}

func validatePrices(purchase, sale decimal.Decimal) error {
	if !purchase.IsPositive() {
		return validationError("purchase price must be greater than 0")
	}
	if !sale.GreaterThan(purchase) {
		return validationError("sale price must be greater than purchase price")
	}
	if err := checkCents("purchase price", purchase); err != nil {
		return err
	}
	return checkCents("sale price", sale)
}

// checkCents rejects values finer than a hundredth. Amounts and quantities are
// stored with two decimals, so anything smaller would be lost on write.
func checkCents(field string, v decimal.Decimal) error {
	if !v.Equal(v.Truncate(2)) {
		return validationError("%s cannot have more than two decimal places", field)
	}
	return nil
}
