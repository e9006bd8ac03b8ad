package usecase

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/pricing"
)

type CartService struct {
	Packages PackageRepo
	Mappings *MappingService
}

type CartLine struct {
	Package          domain.Package       `json:"package"`
	Items            []domain.PackageItem `json:"items"`
	Quantity         int                  `json:"quantity"`
	Subtotal         string               `json:"subtotal"`
	OriginalSubtotal string               `json:"originalSubtotal,omitempty"`
}

type CartView struct {
	Lines         []CartLine `json:"lines"`
	DeliveryDates []string   `json:"deliveryDates"`
	Total         string     `json:"total"`
	OriginalTotal string     `json:"originalTotal"`
	Count         int        `json:"count"`
}

// View prices the cart against currently active packages. Entries for
// packages that are gone or inactive are left out.
func (s *CartService) View(ctx context.Context, cart domain.Cart) (*CartView, error) {
	v := &CartView{Lines: []CartLine{}, DeliveryDates: []string{}, Total: "0.00", OriginalTotal: "0.00"}
	if cart.Empty() {
		return v, nil
	}
	pkgs, err := s.Packages.ListActivePackagesByIDs(ctx, cart.IDs())
	if err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	total := decimal.Zero
	orig := total
	for _, p := range pkgs {
		qty := cart.Qty(p.ID)
		sub := pricing.Subtotal(p.Price, qty)
		origSub := sub
		line := CartLine{Package: p, Quantity: qty, Subtotal: sub.StringFixed(2)}
		if p.OriginalPrice != nil && *p.OriginalPrice != "" {
			origSub = pricing.Subtotal(*p.OriginalPrice, qty)
			line.OriginalSubtotal = origSub.StringFixed(2)
		}
		line.Items = s.Mappings.Translate(ctx, p.Items)
		total = total.Add(sub)
		orig = orig.Add(origSub)
		v.Count += qty
		v.Lines = append(v.Lines, line)
	}
	if dates := DeliveryDateUnion(pkgs); dates != nil {
		v.DeliveryDates = dates
	}
	v.Total = total.StringFixed(2)
	v.OriginalTotal = orig.StringFixed(2)
	return v, nil
}

// sortPackages orders by sortOrder, then most recently updated first.
func sortPackages(pkgs []domain.Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].SortOrder != pkgs[j].SortOrder {
			return pkgs[i].SortOrder < pkgs[j].SortOrder
		}
		return pkgs[i].UpdatedAt.After(pkgs[j].UpdatedAt)
	})
}
