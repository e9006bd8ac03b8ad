package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/pricing"
)

type AdminService struct {
	Orders    OrderRepo
	Merchants MerchantRepo
	Assets    ObjectStore
	Sync      *SyncService
	Events    EventPublisher
	Log       *zap.Logger
}

type AdminOrder struct {
	domain.Order
	ProofURL string `json:"paymentProofUrl,omitempty"`
	Total    string `json:"total"`
}

type OrderPage struct {
	Orders     []AdminOrder `json:"orders"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
}

func (s *AdminService) ListOrders(ctx context.Context, f domain.OrderFilter) (*OrderPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	f.Phone = strings.TrimSpace(f.Phone)
	f.Region = strings.TrimSpace(f.Region)
	f.DeliveryDate = strings.TrimSpace(f.DeliveryDate)
	orders, total, err := s.Orders.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	page := &OrderPage{Orders: make([]AdminOrder, 0, len(orders)), Total: total, Page: f.Page, Limit: f.Limit}
	page.TotalPages = (total + f.Limit - 1) / f.Limit
	for i := range orders {
		page.Orders = append(page.Orders, s.view(ctx, &orders[i]))
	}
	return page, nil
}

func (s *AdminService) view(ctx context.Context, o *domain.Order) AdminOrder {
	v := AdminOrder{Order: *o, Total: pricing.LineTotal(o.Items).StringFixed(2)}
	if o.PaymentProofRef != nil && s.Assets != nil {
		if u, err := s.Assets.Resolve(ctx, *o.PaymentProofRef); err == nil {
			v.ProofURL = u
		}
	}
	return v
}

func (s *AdminService) load(ctx context.Context, id string) (*domain.Order, error) {
	o, ok, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound("order")
	}
	return o, nil
}

func (s *AdminService) GetOrder(ctx context.Context, id string) (*AdminOrder, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, o)
	return &v, nil
}

func (s *AdminService) UpdateStatus(ctx context.Context, id, status string) (*AdminOrder, error) {
	to, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, ErrBadRequest("unknown status " + status)
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != to {
		if !o.Status.CanTransition(to) {
			return nil, ErrConflict("cannot move order from " + string(o.Status) + " to " + string(to))
		}
		applied, err := s.Orders.UpdateStatus(ctx, id, o.Status, to)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, ErrConflict("order status changed concurrently")
		}
		from := o.Status
		o.Status = to
		o.UpdatedAt = time.Now().UTC()
		ev := orderEvent("order.status_changed", o)
		ev.Data["from"] = string(from)
		s.publish(ctx, ev)
		logger(s.Log).Info("order status changed", zap.String("orderId", id), zap.String("from", string(from)), zap.String("to", string(to)))
	}
	v := s.view(ctx, o)
	return &v, nil
}

// DeleteOrder removes the platform copy first; if that fails the local
// order is kept.
func (s *AdminService) DeleteOrder(ctx context.Context, id string) error {
	o, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Sync.Unlink(ctx, o); err != nil {
		return err
	}
	ok, err := s.Orders.DeleteOrder(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound("order")
	}
	s.publish(ctx, orderEvent("order.deleted", o))
	logger(s.Log).Info("order deleted", zap.String("orderId", id), zap.Bool("hadRemote", o.ExternalOrderID != nil))
	return nil
}

// ResyncOrder retries the platform mirror for an order that never got an
// external id.
func (s *AdminService) ResyncOrder(ctx context.Context, id string) (Outcome, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if o.ExternalOrderID != nil && *o.ExternalOrderID != "" {
		return Outcome{}, ErrConflict("order already synced")
	}
	return Outcome{OrderID: o.ID, Remote: s.Sync.Sync(ctx, o)}, nil
}

type MerchantInput struct {
	Name         string
	UserID       string
	DashboardKey string
	Active       *bool
}

func (s *AdminService) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	return s.Merchants.ListMerchants(ctx)
}

// CreateMerchant registers a merchant. A dashboard key is generated when
// none is given and returned once.
func (s *AdminService) CreateMerchant(ctx context.Context, in MerchantInput) (*domain.Merchant, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, "", ErrBadRequest("name required")
	}
	key := strings.TrimSpace(in.DashboardKey)
	if key == "" {
		key = randomID()
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := time.Now().UTC()
	m := &domain.Merchant{
		ID:           newID(),
		UserID:       strPtr(strings.TrimSpace(in.UserID)),
		Name:         in.Name,
		DashboardKey: &key,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Merchants.PutMerchant(ctx, m); err != nil {
		return nil, "", err
	}
	return m, key, nil
}

func (s *AdminService) SetMerchantActive(ctx context.Context, id string, active bool) (*domain.Merchant, error) {
	m, ok, err := s.Merchants.GetMerchant(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound("merchant")
	}
	m.Active = active
	m.UpdatedAt = time.Now().UTC()
	if err := s.Merchants.PutMerchant(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *AdminService) publish(ctx context.Context, ev domain.Event) {
	if s.Events != nil {
		s.Events.Publish(ctx, ev)
	}
}
