package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/pricing"
)

type PackageService struct {
	Packages PackageRepo
	Mappings *MappingService
	Regions  []string
}

// ListActive returns the storefront listing with translated item titles.
func (s *PackageService) ListActive(ctx context.Context) ([]domain.Package, error) {
	pkgs, err := s.Packages.ListPackages(ctx, true)
	if err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	for i := range pkgs {
		pkgs[i].Items = s.Mappings.Translate(ctx, pkgs[i].Items)
	}
	return pkgs, nil
}

func (s *PackageService) GetActive(ctx context.Context, id string) (*domain.Package, error) {
	p, ok, err := s.Packages.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || !p.Active {
		return nil, ErrNotFound("package")
	}
	p.Items = s.Mappings.Translate(ctx, p.Items)
	return p, nil
}

func (s *PackageService) ListAll(ctx context.Context) ([]domain.Package, error) {
	pkgs, err := s.Packages.ListPackages(ctx, false)
	if err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	sort.SliceStable(pkgs, func(i, j int) bool { return pkgs[i].Active && !pkgs[j].Active })
	return pkgs, nil
}

func (s *PackageService) Get(ctx context.Context, id string) (*domain.Package, error) {
	p, ok, err := s.Packages.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound("package")
	}
	return p, nil
}

type PackageInput struct {
	MerchantID    *string              `json:"merchantId"`
	Name          *string              `json:"name"`
	Description   *string              `json:"description"`
	Price         *string              `json:"price"`
	OriginalPrice *string              `json:"originalPrice"`
	Items         []domain.PackageItem `json:"items"`
	DeliveryDates []string             `json:"deliveryDates"`
	Region        *string              `json:"region"`
	ImageURL      *string              `json:"imageUrl"`
	Active        *bool                `json:"isActive"`
	SortOrder     *int                 `json:"sortOrder"`
}

func (s *PackageService) Create(ctx context.Context, in PackageInput) (*domain.Package, error) {
	now := time.Now().UTC()
	p := &domain.Package{ID: newID(), Active: true, CreatedAt: now}
	if err := s.apply(p, in, true); err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	if err := s.Packages.PutPackage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies the fields present in in.
func (s *PackageService) Update(ctx context.Context, id string, in PackageInput) (*domain.Package, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(p, in, false); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.Packages.PutPackage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PackageService) Delete(ctx context.Context, id string) error {
	ok, err := s.Packages.DeletePackage(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound("package")
	}
	return nil
}

func (s *PackageService) apply(p *domain.Package, in PackageInput, create bool) error {
	if create && (in.Name == nil || in.Price == nil || in.Items == nil || in.Region == nil) {
		return ErrBadRequest("name, price, items and region are required")
	}
	if in.Name != nil {
		if p.Name = plainText(*in.Name); p.Name == "" {
			return ErrBadRequest("name must not be empty")
		}
	}
	if in.Description != nil {
		p.Description = plainText(*in.Description)
	}
	if in.Price != nil {
		price, err := pricing.NormalizePrice(*in.Price)
		if err != nil {
			return ErrBadRequest("price: " + err.Error())
		}
		p.Price = price
	}
	if in.OriginalPrice != nil {
		if strings.TrimSpace(*in.OriginalPrice) == "" {
			p.OriginalPrice = nil
		} else {
			op, err := pricing.NormalizePrice(*in.OriginalPrice)
			if err != nil {
				return ErrBadRequest("originalPrice: " + err.Error())
			}
			p.OriginalPrice = &op
		}
	}
	if in.Items != nil {
		if len(in.Items) == 0 {
			return ErrBadRequest("at least one item required")
		}
		for _, it := range in.Items {
			if strings.TrimSpace(it.Title) == "" || it.ShopifyProductID == "" || it.ShopifyVariantID == "" || it.Quantity <= 0 {
				return ErrBadRequest("each item needs title, shopifyProductId, shopifyVariantId and a positive quantity")
			}
		}
		p.Items = in.Items
	}
	if in.DeliveryDates != nil {
		dates := make([]string, 0, len(in.DeliveryDates))
		for _, d := range in.DeliveryDates {
			if d = strings.TrimSpace(d); d != "" {
				dates = append(dates, d)
			}
		}
		p.DeliveryDates = dates
	}
	if in.Region != nil {
		r := strings.TrimSpace(*in.Region)
		if len(s.Regions) > 0 && !contains(s.Regions, r) {
			return ErrBadRequest("region must be one of " + strings.Join(s.Regions, ", "))
		}
		p.Region = r
	}
	if in.MerchantID != nil {
		p.MerchantID = strPtr(strings.TrimSpace(*in.MerchantID))
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.SortOrder != nil {
		p.SortOrder = *in.SortOrder
	}
	return nil
}
