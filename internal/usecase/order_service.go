package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/pricing"
)

type OrderService struct {
	Orders   OrderRepo
	Packages PackageRepo
	Users    UserRepo
	Mappings *MappingService
	Assets   ObjectStore
	Sync     *SyncService
	Events   EventPublisher
	Log      *zap.Logger
}

type DirectOrderInput struct {
	CustomerName  string
	Phone         string
	Address       string
	DeliveryTime  string
	Items         []domain.LineItem
	PackageID     string
	PaymentMethod string
	Note          string
	Proof         *domain.Upload
}

// CreateDirect persists an order submitted with explicit line items and
// then mirrors it to the platform.
func (s *OrderService) CreateDirect(ctx context.Context, in DirectOrderInput) (Outcome, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.DeliveryTime = strings.TrimSpace(in.DeliveryTime)
	if in.CustomerName == "" || in.Phone == "" || in.Address == "" || in.DeliveryTime == "" {
		return Outcome{}, ErrBadRequest("customerName, phone, address and deliveryTime are required")
	}
	if len(in.Items) == 0 {
		return Outcome{}, ErrBadRequest("items required")
	}
	items := make([]domain.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.Title) == "" || it.Quantity <= 0 {
			return Outcome{}, ErrBadRequest("each item needs a title and a positive quantity")
		}
		price, err := pricing.NormalizePrice(it.Price)
		if err != nil {
			return Outcome{}, ErrBadRequest("invalid item price")
		}
		it.Title = strings.TrimSpace(it.Title)
		it.Price = price
		items = append(items, it)
	}
	method, ok := domain.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return Outcome{}, ErrBadRequest("unknown payment method")
	}
	if method == domain.PaymentTransfer && in.Proof == nil {
		return Outcome{}, ErrBadRequest("payment proof required for bank transfer")
	}

	var region *string
	if in.PackageID != "" {
		p, found, err := s.Packages.GetPackage(ctx, in.PackageID)
		if err != nil {
			return Outcome{}, err
		}
		if found {
			region = strPtr(p.Region)
		}
	}

	var proof *string
	if method == domain.PaymentTransfer {
		ref, err := s.Assets.Put(ctx, *in.Proof)
		if err != nil {
			return Outcome{}, err
		}
		proof = &ref
	}

	now := time.Now().UTC()
	o := &domain.Order{
		ID:              newID(),
		CustomerName:    in.CustomerName,
		Phone:           in.Phone,
		Address:         in.Address,
		DeliveryTime:    in.DeliveryTime,
		Items:           items,
		PackageID:       strPtr(in.PackageID),
		Region:          region,
		PaymentMethod:   method,
		PaymentProofRef: proof,
		Note:            strPtr(strings.TrimSpace(in.Note)),
		Status:          domain.OrderNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Orders.CreateOrder(ctx, o); err != nil {
		return Outcome{}, err
	}
	s.events().Publish(ctx, orderEvent("order.created", o))
	remote := s.Sync.Sync(ctx, o)
	logger(s.Log).Info("order created",
		zap.String("orderId", o.ID),
		zap.String("source", "direct"),
		zap.String("paymentMethod", string(o.PaymentMethod)),
		zap.Int("items", len(o.Items)),
		zap.String("sync", string(remote.State)))
	return Outcome{OrderID: o.ID, Remote: remote}, nil
}

type CheckoutInput struct {
	CustomerName string
	Address      string
	DeliveryTime string
	Note         string
}

// Checkout turns the session cart into an order owned by userID. Payment is
// chosen in a later step, so the order starts as a transfer without proof.
// The caller clears the cart when this returns without error.
func (s *OrderService) Checkout(ctx context.Context, userID string, cart domain.Cart, in CheckoutInput) (*domain.Order, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Address = strings.TrimSpace(in.Address)
	in.DeliveryTime = strings.TrimSpace(in.DeliveryTime)
	if in.CustomerName == "" || in.Address == "" || in.DeliveryTime == "" {
		return nil, ErrBadRequest("customerName, address and deliveryTime are required")
	}
	u, ok, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized("unknown user")
	}
	if strings.TrimSpace(u.Phone) == "" {
		return nil, ErrBadRequest("account has no phone number")
	}
	if cart.Empty() {
		return nil, ErrBadRequest("cart is empty")
	}
	pkgs, err := s.Packages.ListActivePackagesByIDs(ctx, cart.IDs())
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, ErrBadRequest("cart has no available packages")
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })

	if dates := DeliveryDateUnion(pkgs); len(dates) > 0 && !contains(dates, in.DeliveryTime) {
		return nil, ErrBadRequest("delivery time not offered by the selected packages")
	}

	var items []domain.LineItem
	for _, p := range pkgs {
		items = append(items, pricing.Expand(p, s.Mappings.Translate(ctx, p.Items), cart.Qty(p.ID))...)
	}
	if len(items) == 0 {
		return nil, ErrBadRequest("selected packages have no items")
	}

	now := time.Now().UTC()
	o := &domain.Order{
		ID:            newID(),
		CustomerName:  in.CustomerName,
		Phone:         u.Phone,
		Address:       in.Address,
		DeliveryTime:  in.DeliveryTime,
		Items:         items,
		PaymentMethod: domain.PaymentTransfer,
		Note:          strPtr(strings.TrimSpace(in.Note)),
		Status:        domain.OrderNew,
		UserID:        &u.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if len(pkgs) == 1 {
		o.PackageID = &pkgs[0].ID
		o.Region = strPtr(pkgs[0].Region)
	}
	if err := s.Orders.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.events().Publish(ctx, orderEvent("order.created", o))
	logger(s.Log).Info("order created",
		zap.String("orderId", o.ID),
		zap.String("source", "cart"),
		zap.Int("packages", len(pkgs)),
		zap.Int("items", len(o.Items)))
	return o, nil
}

// MyOrders lists the most recent orders owned by the user or placed with
// their phone.
func (s *OrderService) MyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	u, ok, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized("unknown user")
	}
	return s.Orders.ListOrdersForUser(ctx, u.ID, u.Phone, 50)
}

func (s *OrderService) events() EventPublisher {
	if s.Events == nil {
		return nopEvents{}
	}
	return s.Events
}

// DeliveryDateUnion collects the distinct trimmed dates offered by pkgs.
func DeliveryDateUnion(pkgs []domain.Package) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range pkgs {
		for _, d := range p.DeliveryDates {
			d = strings.TrimSpace(d)
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func orderEvent(typ string, o *domain.Order) domain.Event {
	return domain.Event{
		Type:      typ,
		SubjectID: o.ID,
		At:        time.Now().UTC(),
		Data: map[string]any{
			"status":        string(o.Status),
			"paymentMethod": string(o.PaymentMethod),
			"items":         len(o.Items),
		},
	}
}
