package usecase

import (
	"context"

	"groupbuy-backend/internal/domain"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, bool, error)
	// UpdatePayment writes method and proof in a single statement.
	UpdatePayment(ctx context.Context, id string, method domain.PaymentMethod, proofRef *string) error
	SetExternalOrderID(ctx context.Context, id, externalID string) error
	// UpdateStatus moves the order from one status to another and reports
	// false when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)
	DeleteOrder(ctx context.Context, id string) (bool, error)
	ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error)
	// ListOrdersForUser returns orders owned by userID or placed with
	// phone, newest first.
	ListOrdersForUser(ctx context.Context, userID, phone string, limit int) ([]domain.Order, error)
}

type PackageRepo interface {
	GetPackage(ctx context.Context, id string) (*domain.Package, bool, error)
	ListActivePackagesByIDs(ctx context.Context, ids []string) ([]domain.Package, error)
	ListPackages(ctx context.Context, activeOnly bool) ([]domain.Package, error)
	ListPackagesByMerchant(ctx context.Context, merchantID string, activeOnly bool) ([]domain.Package, error)
	PutPackage(ctx context.Context, p *domain.Package) error
	DeletePackage(ctx context.Context, id string) (bool, error)
}

type UserRepo interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, bool, error)
	GetUserByPhone(ctx context.Context, phone string) (*domain.User, bool, error)
	UpdateUserRole(ctx context.Context, id string, role domain.Role) error
}

type MerchantRepo interface {
	PutMerchant(ctx context.Context, m *domain.Merchant) error
	GetMerchant(ctx context.Context, id string) (*domain.Merchant, bool, error)
	GetMerchantByUserID(ctx context.Context, userID string) (*domain.Merchant, bool, error)
	GetMerchantByDashboardKey(ctx context.Context, key string) (*domain.Merchant, bool, error)
	ListMerchants(ctx context.Context) ([]domain.Merchant, error)
	// SearchMerchants pages through active merchants. A non-empty query
	// matches name, description or address and orders by recency; without
	// one the largest catalogues come first.
	SearchMerchants(ctx context.Context, q string, page, limit int) ([]domain.MerchantSummary, int, error)
}

type ServiceRequestRepo interface {
	CreateServiceRequest(ctx context.Context, r *domain.ServiceRequest) error
	GetServiceRequest(ctx context.Context, id string) (*domain.ServiceRequest, bool, error)
	ListOpenServiceRequests(ctx context.Context, limit int) ([]domain.ServiceRequest, error)
	ListServiceRequestsFor(ctx context.Context, userID, phone string, limit int) ([]domain.ServiceRequest, error)
	// SelectQuote sets status and selected quote together. It applies only
	// while the request is open (or already points at quoteID) and the
	// quote belongs to the request.
	SelectQuote(ctx context.Context, requestID, quoteID string) (bool, error)
	UpsertQuote(ctx context.Context, q *domain.MerchantQuote) (*domain.MerchantQuote, error)
	GetQuote(ctx context.Context, id string) (*domain.MerchantQuote, bool, error)
	GetMerchantQuote(ctx context.Context, requestID, merchantID string) (*domain.MerchantQuote, bool, error)
	ListQuotes(ctx context.Context, requestID string) ([]domain.MerchantQuote, error)
	QuotedRequestIDs(ctx context.Context, merchantID string, requestIDs []string) (map[string]bool, error)
}

type ServiceCatalogRepo interface {
	PutService(ctx context.Context, sv *domain.Service) error
	GetService(ctx context.Context, id string) (*domain.Service, bool, error)
	ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error)
	ListServicesByMerchant(ctx context.Context, merchantID string, activeOnly bool) ([]domain.Service, error)
	DeleteService(ctx context.Context, id string) (bool, error)
	CreateBooking(ctx context.Context, b *domain.ServiceBooking) error
	GetBooking(ctx context.Context, id string) (*domain.ServiceBooking, bool, error)
	ListBookingsFor(ctx context.Context, userID, phone string, limit int) ([]domain.ServiceBooking, error)
}

type MappingRepo interface {
	ListMappings(ctx context.Context) ([]domain.ProductNameMapping, error)
	GetMapping(ctx context.Context, id string) (*domain.ProductNameMapping, bool, error)
	MappingsByProductIDs(ctx context.Context, productIDs []string) (map[string]domain.ProductNameMapping, error)
	UpsertMapping(ctx context.Context, m *domain.ProductNameMapping) (*domain.ProductNameMapping, error)
	UpdateMapping(ctx context.Context, m *domain.ProductNameMapping) error
	DeleteMapping(ctx context.Context, id string) (bool, error)
}

// ObjectStore persists uploaded attachments and turns stored refs into
// URLs a browser can fetch.
type ObjectStore interface {
	Put(ctx context.Context, up domain.Upload) (string, error)
	Resolve(ctx context.Context, ref string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, domain.Event) {}
