package usecase

import (
	"context"

	"groupbuy-backend/internal/domain"
)

const accountListLimit = 100

type AccountService struct {
	Users    UserRepo
	Orders   OrderRepo
	Requests ServiceRequestRepo
	Catalog  ServiceCatalogRepo
}

// AccountRequest is a service request with the quotes merchants made on it.
type AccountRequest struct {
	domain.ServiceRequest
	Quotes   []domain.MerchantQuote `json:"quotes"`
	Selected *domain.MerchantQuote  `json:"selectedQuote"`
}

type Account struct {
	User            *domain.User            `json:"user"`
	Orders          []domain.Order          `json:"orders"`
	ServiceBookings []domain.ServiceBooking `json:"serviceBookings"`
	ServiceRequests []AccountRequest        `json:"serviceRequests"`
}

func (s *AccountService) user(ctx context.Context, userID string) (*domain.User, error) {
	u, ok, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized("unknown user")
	}
	return u, nil
}

// Overview gathers what the user owns or submitted with their phone.
func (s *AccountService) Overview(ctx context.Context, userID string) (*Account, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	orders, err := s.Orders.ListOrdersForUser(ctx, u.ID, u.Phone, accountListLimit)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Catalog.ListBookingsFor(ctx, u.ID, u.Phone, accountListLimit)
	if err != nil {
		return nil, err
	}
	reqs, err := s.requests(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Account{User: u, Orders: orders, ServiceBookings: bookings, ServiceRequests: reqs}, nil
}

func (s *AccountService) ServiceRequests(ctx context.Context, userID string) ([]AccountRequest, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.requests(ctx, u)
}

func (s *AccountService) requests(ctx context.Context, u *domain.User) ([]AccountRequest, error) {
	reqs, err := s.Requests.ListServiceRequestsFor(ctx, u.ID, u.Phone, accountListLimit)
	if err != nil {
		return nil, err
	}
	out := make([]AccountRequest, 0, len(reqs))
	for _, r := range reqs {
		quotes, err := s.Requests.ListQuotes(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		ar := AccountRequest{ServiceRequest: r, Quotes: quotes}
		if r.SelectedQuoteID != nil {
			for i := range quotes {
				if quotes[i].ID == *r.SelectedQuoteID {
					ar.Selected = &quotes[i]
				}
			}
		}
		out = append(out, ar)
	}
	return out, nil
}
