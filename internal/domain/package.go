package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type PackageItem struct {
	Title            string `json:"title"`
	Quantity         int    `json:"quantity"`
	ShopifyProductID string `json:"shopifyProductId,omitempty"`
	ShopifyVariantID string `json:"shopifyVariantId,omitempty"`
	OriginalTitle    string `json:"originalTitle,omitempty"`
}

// UnmarshalJSON also accepts the older productId/variantId keys and
// quantities stored as strings.
func (p *PackageItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		Title            string `json:"title"`
		Quantity         any    `json:"quantity"`
		ShopifyProductID string `json:"shopifyProductId"`
		ShopifyVariantID string `json:"shopifyVariantId"`
		ProductID        string `json:"productId"`
		VariantID        string `json:"variantId"`
		OriginalTitle    string `json:"originalTitle"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Title = raw.Title
	p.Quantity = NormalizeQty(raw.Quantity)
	p.ShopifyProductID = firstNonEmpty(raw.ShopifyProductID, raw.ProductID)
	p.ShopifyVariantID = firstNonEmpty(raw.ShopifyVariantID, raw.VariantID)
	p.OriginalTitle = raw.OriginalTitle
	return nil
}

type Package struct {
	ID            string        `json:"id"`
	MerchantID    *string       `json:"merchantId,omitempty"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Price         string        `json:"price"`
	OriginalPrice *string       `json:"originalPrice"`
	Items         []PackageItem `json:"items"`
	DeliveryDates []string      `json:"deliveryDates"`
	Region        string        `json:"region"`
	ImageURL      string        `json:"imageUrl"`
	Active        bool          `json:"isActive"`
	SortOrder     int           `json:"sortOrder"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (p *Package) TotalUnits() int {
	n := 0
	for _, it := range p.Items {
		n += it.Quantity
	}
	return n
}

func DecodePackageItems(raw string) []PackageItem {
	var items []PackageItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []PackageItem{}
	}
	return items
}

// DecodeDeliveryDates drops blank entries and trims the rest.
func DecodeDeliveryDates(raw string) []string {
	var dates []string
	if raw == "" || json.Unmarshal([]byte(raw), &dates) != nil {
		return nil
	}
	out := dates[:0]
	for _, d := range dates {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
