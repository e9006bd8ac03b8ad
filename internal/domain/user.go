package domain

import (
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned by stores when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
	// ErrMissingParent is returned when a row references one that is gone.
	ErrMissingParent = errors.New("referenced row missing")
)

type Role string

const (
	RoleUser     Role = "USER"
	RoleMerchant Role = "MERCHANT"
	RoleAdmin    Role = "ADMIN"
)

type User struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Merchant struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"userId"`
	Name         string    `json:"name"`
	ContactName  *string   `json:"contactName"`
	Phone        *string   `json:"phone"`
	WeChat       *string   `json:"wechat"`
	Email        *string   `json:"email"`
	Description  *string   `json:"description"`
	Address      *string   `json:"address"`
	OpenHours    *string   `json:"openHours"`
	ImageURL     *string   `json:"imageUrl"`
	DashboardKey *string   `json:"-"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MerchantSummary is a directory entry with the size of the merchant's
// catalogue.
type MerchantSummary struct {
	Merchant
	PackageCount int `json:"packageCount"`
	ServiceCount int `json:"serviceCount"`
}

type ProductNameMapping struct {
	ID               string    `json:"id"`
	ShopifyProductID string    `json:"shopifyProductId"`
	ShopifyVariantID *string   `json:"shopifyVariantId"`
	EnglishName      string    `json:"englishName"`
	ChineseName      string    `json:"chineseName"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Upload is an attachment received from a client, before it is stored.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Event struct {
	Type      string         `json:"type"`
	SubjectID string         `json:"subjectId"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}
