package domain

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderNew           OrderStatus = "new"
	OrderPaidConfirmed OrderStatus = "paid_confirmed"
	OrderPreparing     OrderStatus = "preparing"
	OrderDelivering    OrderStatus = "delivering"
	OrderCompleted     OrderStatus = "completed"
	OrderCancelled     OrderStatus = "cancelled"
)

var orderFlow = []OrderStatus{OrderNew, OrderPaidConfirmed, OrderPreparing, OrderDelivering, OrderCompleted}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	if st == OrderCancelled {
		return st, true
	}
	for _, v := range orderFlow {
		if v == st {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) rank() int {
	for i, v := range orderFlow {
		if v == s {
			return i
		}
	}
	return -1
}

// CanTransition allows forward moves along the fulfilment chain and
// cancellation of any order that has not finished.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return to.rank() > s.rank()
}

type PaymentMethod string

const (
	PaymentTransfer       PaymentMethod = "transfer"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case "":
		return PaymentTransfer, true
	case PaymentTransfer, PaymentCashOnDelivery:
		return PaymentMethod(s), true
	}
	return "", false
}

type LineItem struct {
	Title            string `json:"title"`
	Price            string `json:"price"`
	Quantity         int    `json:"quantity"`
	ShopifyProductID string `json:"shopifyProductId,omitempty"`
	ShopifyVariantID string `json:"shopifyVariantId,omitempty"`
}

type Order struct {
	ID              string        `json:"id"`
	CustomerName    string        `json:"customerName"`
	Phone           string        `json:"phone"`
	Address         string        `json:"address"`
	DeliveryTime    string        `json:"deliveryTime"`
	Items           []LineItem    `json:"items"`
	PackageID       *string       `json:"packageId"`
	Region          *string       `json:"region"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	PaymentProofRef *string       `json:"paymentProof"`
	Note            *string       `json:"optionalNote"`
	Status          OrderStatus   `json:"internalStatus"`
	ExternalOrderID *string       `json:"shopifyOrderId"`
	UserID          *string       `json:"userId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type OrderFilter struct {
	Status       OrderStatus
	Phone        string
	Region       string
	DeliveryDate string
	Page         int
	Limit        int
}

// DecodeLineItems never fails; malformed blobs read as an empty list.
func DecodeLineItems(raw string) []LineItem {
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []LineItem{}
	}
	return items
}
