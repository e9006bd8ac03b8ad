// Package pricing turns package listings into order line items and
// normalizes free-form price input.
package pricing

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	"groupbuy-backend/internal/domain"
)

var (
	ErrInvalidPrice  = errors.New("invalid price")
	ErrNegativePrice = errors.New("price must not be negative")

	nonPrice = regexp.MustCompile(`[^0-9.]`)
)

func parse(price string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UnitPrice splits a package price evenly over its units, rounded to cents.
func UnitPrice(price string, totalUnits int) decimal.Decimal {
	if totalUnits <= 0 {
		return decimal.Zero
	}
	return parse(price).Div(decimal.NewFromInt(int64(totalUnits))).Round(2)
}

// Expand converts the items of pkg into order lines for cartQty copies of
// the package. items are passed separately so callers can supply
// translated titles. Items without a positive quantity produce no line.
func Expand(pkg domain.Package, items []domain.PackageItem, cartQty int) []domain.LineItem {
	if cartQty <= 0 {
		return nil
	}
	units := 0
	for _, it := range items {
		if it.Quantity > 0 {
			units += it.Quantity
		}
	}
	unit := UnitPrice(pkg.Price, units).StringFixed(2)
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		out = append(out, domain.LineItem{
			Title:            pkg.Name + " - " + it.Title,
			Price:            unit,
			Quantity:         it.Quantity * cartQty,
			ShopifyProductID: it.ShopifyProductID,
			ShopifyVariantID: it.ShopifyVariantID,
		})
	}
	return out
}

func Subtotal(price string, qty int) decimal.Decimal {
	return parse(price).Mul(decimal.NewFromInt(int64(qty)))
}

func LineTotal(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(Subtotal(it.Price, it.Quantity))
	}
	return total
}

// NormalizePrice accepts input such as "$150 AUD" or "１５０" and returns
// a two decimal string.
func NormalizePrice(raw string) (string, error) {
	s := width.Fold.String(strings.TrimSpace(raw))
	if i := strings.IndexAny(s, "0123456789"); i >= 0 && strings.Contains(s[:i], "-") {
		return "", ErrNegativePrice
	}
	s = nonPrice.ReplaceAllString(s, "")
	if s == "" {
		return "", ErrInvalidPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", ErrInvalidPrice
	}
	if d.IsNegative() {
		return "", ErrNegativePrice
	}
	return d.StringFixed(2), nil
}
