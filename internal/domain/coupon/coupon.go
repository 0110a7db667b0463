// internal/domain/coupon/coupon.go
package coupon

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
)

// Static code table. There is no persistence, expiry, or usage limit;
// a real coupon engine would replace this map.
var rates = map[string]decimal.Decimal{
	"SAVE10":    decimal.RequireFromString("0.10"),
	"WELCOME20": decimal.RequireFromString("0.20"),
	"SOLARA30":  decimal.RequireFromString("0.30"),
}

// Normalize returns the canonical form of a coupon code
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve looks up the discount rate for a code, case-insensitively
func Resolve(code string) (decimal.Decimal, bool) {
	rate, ok := rates[Normalize(code)]
	return rate, ok
}

// Discount computes the discount amount in cents for a code applied to a
// subtotal in cents, rounding half up to the nearest cent
func Discount(code string, subtotal int64) (int64, error) {
	rate, ok := Resolve(code)
	if !ok {
		return 0, errs.Newf(errs.CodeInvalidCoupon, "invalid coupon code: %s", code)
	}

	discount := decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}
