package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Service is a bookable offering with fixed time slots, as opposed to a
// ServiceRequest which merchants quote on.
type Service struct {
	ID           string    `json:"id"`
	MerchantID   *string   `json:"merchantId,omitempty"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Price        *string   `json:"price"`
	DurationMins *int      `json:"durationMins"`
	TimeSlots    []string  `json:"timeSlots"`
	ImageURL     *string   `json:"imageUrl"`
	Active       bool      `json:"isActive"`
	SortOrder    int       `json:"sortOrder"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const BookingNew = "new"

type ServiceBooking struct {
	ID                string    `json:"id"`
	ServiceID         string    `json:"serviceId"`
	ServiceName       string    `json:"serviceName,omitempty"`
	CustomerName      string    `json:"customerName"`
	Phone             string    `json:"phone"`
	PreferredTime     string    `json:"preferredTime"`
	Note              *string   `json:"optionalNote"`
	ReferenceImageRef *string   `json:"referenceImage"`
	Status            string    `json:"status"`
	UserID            *string   `json:"userId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DecodeTimeSlots reads a stored slot list. Anything that is not a JSON
// array of strings reads as no slots.
func DecodeTimeSlots(raw string) []string {
	var slots []string
	if raw == "" || json.Unmarshal([]byte(raw), &slots) != nil {
		return []string{}
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
