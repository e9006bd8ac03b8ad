package domain

import "time"

type RequestStatus string

const (
	RequestOpen     RequestStatus = "open"
	RequestSelected RequestStatus = "selected"
)

type ServiceRequest struct {
	ID                string        `json:"id"`
	ServiceType       string        `json:"serviceType"`
	Title             *string       `json:"title"`
	Description       string        `json:"description"`
	Address           *string       `json:"address"`
	PreferredTime     *string       `json:"preferredTime"`
	ReferenceImageRef *string       `json:"referenceImage"`
	Status            RequestStatus `json:"status"`
	UserName          string        `json:"userName"`
	UserPhone         string        `json:"userPhone"`
	UserID            *string       `json:"userId,omitempty"`
	AccessToken       *string       `json:"-"`
	SelectedQuoteID   *string       `json:"selectedQuoteId"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

type MerchantQuote struct {
	ID               string    `json:"id"`
	ServiceRequestID string    `json:"serviceRequestId"`
	MerchantID       string    `json:"merchantId"`
	MerchantName     string    `json:"merchantName,omitempty"`
	Price            string    `json:"price"`
	Details          *string   `json:"details"`
	ContactInfo      *string   `json:"contactInfo"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
