package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupbuy-backend/internal/domain"
)

func TestExpandSplitsPriceOverUnits(t *testing.T) {
	pkg := domain.Package{Name: "Family Box", Price: "59.90"}
	items := []domain.PackageItem{
		{Title: "Apples", Quantity: 2, ShopifyVariantID: "900"},
		{Title: "Pears", Quantity: 3, ShopifyProductID: "800"},
	}

	lines := Expand(pkg, items, 2)
	require.Len(t, lines, 2)
	assert.Equal(t, domain.LineItem{Title: "Family Box - Apples", Price: "11.98", Quantity: 4, ShopifyVariantID: "900"}, lines[0])
	assert.Equal(t, domain.LineItem{Title: "Family Box - Pears", Price: "11.98", Quantity: 6, ShopifyProductID: "800"}, lines[1])
	assert.Equal(t, "119.80", LineTotal(lines).StringFixed(2))
}

func TestExpandZeroUnits(t *testing.T) {
	lines := Expand(domain.Package{Name: "Empty", Price: "10"}, []domain.PackageItem{{Title: "Gift", Quantity: 0}}, 3)
	assert.Empty(t, lines)
}

func TestExpandSkipsNonPositiveItems(t *testing.T) {
	items := []domain.PackageItem{{Title: "x", Quantity: 2}, {Title: "gift", Quantity: 0}, {Title: "bad", Quantity: -1}}
	lines := Expand(domain.Package{Name: "Z", Price: "10"}, items, 1)
	require.Len(t, lines, 1)
	assert.Equal(t, domain.LineItem{Title: "Z - x", Price: "5.00", Quantity: 2}, lines[0])

	assert.Empty(t, Expand(domain.Package{Name: "Z", Price: "10"}, items, 0))
}

func TestUnitPriceRounding(t *testing.T) {
	assert.Equal(t, "3.33", UnitPrice("10", 3).StringFixed(2))
	assert.Equal(t, "0.00", UnitPrice("garbage", 3).StringFixed(2))
}

func TestNormalizePrice(t *testing.T) {
	p, err := NormalizePrice("$150 AUD")
	require.NoError(t, err)
	assert.Equal(t, "150.00", p)

	p, err = NormalizePrice("１２.５")
	require.NoError(t, err)
	assert.Equal(t, "12.50", p)

	_, err = NormalizePrice("-5")
	assert.ErrorIs(t, err, ErrNegativePrice)

	_, err = NormalizePrice("free")
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NormalizePrice("1.2.3")
	assert.ErrorIs(t, err, ErrInvalidPrice)
}
