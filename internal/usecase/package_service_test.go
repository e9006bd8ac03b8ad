package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/repo"
)

func strp(s string) *string { return &s }

func validPackage() PackageInput {
	return PackageInput{
		Name:   strp("Fruit <b>box</b>"),
		Price:  strp("５９.９"),
		Region: strp("Inner West"),
		Items: []domain.PackageItem{
			{Title: "Apple", Quantity: 2, ShopifyProductID: "11", ShopifyVariantID: "21"},
		},
		DeliveryDates: []string{" Sat 8 Mar ", ""},
	}
}

func TestPackageCreateAndUpdate(t *testing.T) {
	r := repo.NewMemoryRepo()
	s := &PackageService{Packages: r, Regions: []string{"Inner West", "North Shore"}}
	ctx := context.Background()

	p, err := s.Create(ctx, validPackage())
	require.NoError(t, err)
	assert.Equal(t, "Fruit box", p.Name)
	assert.Equal(t, "59.90", p.Price)
	assert.Equal(t, []string{"Sat 8 Mar"}, p.DeliveryDates)

	up, err := s.Update(ctx, p.ID, PackageInput{OriginalPrice: strp("79"), Region: strp("North Shore")})
	require.NoError(t, err)
	assert.Equal(t, "79.00", *up.OriginalPrice)
	assert.Equal(t, "North Shore", up.Region)
	assert.Equal(t, "59.90", up.Price)

	var bad ErrBadRequest
	_, err = s.Update(ctx, p.ID, PackageInput{Region: strp("Mars")})
	assert.ErrorAs(t, err, &bad)

	var nf ErrNotFound
	_, err = s.Update(ctx, "missing", PackageInput{})
	assert.ErrorAs(t, err, &nf)
}

func TestPackageCreateValidation(t *testing.T) {
	s := &PackageService{Packages: repo.NewMemoryRepo()}
	ctx := context.Background()
	var bad ErrBadRequest

	in := validPackage()
	in.Name = nil
	_, err := s.Create(ctx, in)
	assert.ErrorAs(t, err, &bad)

	in = validPackage()
	in.Items[0].ShopifyVariantID = ""
	_, err = s.Create(ctx, in)
	assert.ErrorAs(t, err, &bad)

	in = validPackage()
	in.Price = strp("-1")
	_, err = s.Create(ctx, in)
	assert.ErrorAs(t, err, &bad)
}

func TestListActiveHidesInactive(t *testing.T) {
	r := repo.NewMemoryRepo()
	s := &PackageService{Packages: r}
	ctx := context.Background()
	require.NoError(t, r.PutPackage(ctx, &domain.Package{ID: "on", Name: "On", Price: "1.00", Active: true}))
	require.NoError(t, r.PutPackage(ctx, &domain.Package{ID: "off", Name: "Off", Price: "1.00"}))

	got, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "on", got[0].ID)

	var nf ErrNotFound
	_, err = s.GetActive(ctx, "off")
	assert.ErrorAs(t, err, &nf)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "on", all[0].ID, "active first")
}
