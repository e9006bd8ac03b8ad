package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
)

// BookingService lists bookable services and records bookings for them.
type BookingService struct {
	Catalog ServiceCatalogRepo
	Assets  ObjectStore
	Events  EventPublisher
	Log     *zap.Logger
}

func (s *BookingService) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.Catalog.ListServices(ctx, true)
}

func (s *BookingService) GetService(ctx context.Context, id string) (*domain.Service, error) {
	sv, ok, err := s.Catalog.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || !sv.Active {
		return nil, ErrNotFound("service")
	}
	return sv, nil
}

type BookingInput struct {
	ServiceID     string
	CustomerName  string
	Phone         string
	PreferredTime string
	Note          string
	Image         *domain.Upload
}

// Book records a booking for an active service. When the service lists
// time slots the preferred time must be one of them.
func (s *BookingService) Book(ctx context.Context, in BookingInput, session *SessionProof) (*domain.ServiceBooking, error) {
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	in.CustomerName = plainText(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.PreferredTime = strings.TrimSpace(in.PreferredTime)
	if in.ServiceID == "" || in.CustomerName == "" || in.Phone == "" || in.PreferredTime == "" {
		return nil, ErrBadRequest("serviceId, customerName, phone and preferredTime are required")
	}
	sv, err := s.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if len(sv.TimeSlots) > 0 && !contains(sv.TimeSlots, in.PreferredTime) {
		return nil, ErrBadRequest("preferredTime must be one of the service's time slots")
	}
	var image *string
	if in.Image != nil {
		ref, err := s.Assets.Put(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		image = &ref
	}
	now := time.Now().UTC()
	b := &domain.ServiceBooking{
		ID:                newID(),
		ServiceID:         sv.ID,
		ServiceName:       sv.Name,
		CustomerName:      in.CustomerName,
		Phone:             in.Phone,
		PreferredTime:     in.PreferredTime,
		Note:              strPtr(plainText(in.Note)),
		ReferenceImageRef: image,
		Status:            domain.BookingNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if session != nil && session.UserID != "" {
		b.UserID = &session.UserID
	}
	if err := s.Catalog.CreateBooking(ctx, b); err != nil {
		if errors.Is(err, domain.ErrMissingParent) {
			return nil, ErrNotFound("service")
		}
		return nil, err
	}
	if s.Events != nil {
		s.Events.Publish(ctx, domain.Event{
			Type:      "service_booking.created",
			SubjectID: b.ID,
			At:        now,
			Data:      map[string]any{"serviceId": sv.ID, "preferredTime": b.PreferredTime},
		})
	}
	logger(s.Log).Info("service booked", zap.String("bookingId", b.ID), zap.String("serviceId", sv.ID))
	return b, nil
}

type BookingView struct {
	*domain.ServiceBooking
	ReferenceImageURL string `json:"referenceImageUrl,omitempty"`
}

// GetBooking looks a booking up by id. The id is random and only handed to
// the person who booked.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*BookingView, error) {
	b, ok, err := s.Catalog.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound("booking")
	}
	v := &BookingView{ServiceBooking: b}
	if b.ReferenceImageRef != nil && s.Assets != nil {
		u, err := s.Assets.Resolve(ctx, *b.ReferenceImageRef)
		if err != nil {
			logger(s.Log).Warn("resolve booking image", zap.String("bookingId", b.ID), zap.Error(err))
		}
		v.ReferenceImageURL = u
	}
	return v, nil
}
