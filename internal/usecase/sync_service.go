package usecase

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/shopify"
)

type OrderPlatform interface {
	Configured() bool
	CreateOrder(ctx context.Context, in shopify.OrderInput) (shopify.CreatedOrder, error)
	DeleteOrder(ctx context.Context, id string) error
}

type RemoteState string

const (
	RemoteSynced  RemoteState = "synced"
	RemoteFailed  RemoteState = "failed"
	RemoteSkipped RemoteState = "skipped"
)

type RemoteStatus struct {
	State      RemoteState `json:"state"`
	ExternalID string      `json:"externalId,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// Outcome is returned once the local write has committed. Remote tells
// the caller what happened to the platform mirror.
type Outcome struct {
	OrderID string       `json:"orderId"`
	Remote  RemoteStatus `json:"sync"`
}

type SyncService struct {
	Orders   OrderRepo
	Platform OrderPlatform
	Events   EventPublisher
	Log      *zap.Logger
	Timeout  time.Duration

	SourceTag string
	Tags      []string
	City      string
	Province  string
	Country   string
}

var textPolicy = bluemonday.StrictPolicy()

// plainText strips markup from user supplied free text.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// Sync mirrors a committed order to the platform. Failures are logged and
// reported in the returned status, never as an error.
func (s *SyncService) Sync(ctx context.Context, o *domain.Order) RemoteStatus {
	if s == nil {
		return RemoteStatus{State: RemoteSkipped, Reason: "platform not configured"}
	}
	if o.ExternalOrderID != nil && *o.ExternalOrderID != "" {
		return RemoteStatus{State: RemoteSkipped, ExternalID: *o.ExternalOrderID, Reason: "already synced"}
	}
	if s.Platform == nil || !s.Platform.Configured() {
		return RemoteStatus{State: RemoteSkipped, Reason: "platform not configured"}
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := s.Platform.CreateOrder(ctx, s.BuildOrderInput(o))
	if err != nil {
		logger(s.Log).Error("order sync failed", zap.String("orderId", o.ID), zap.Error(err))
		s.events().Publish(ctx, domain.Event{Type: "order.sync_failed", SubjectID: o.ID, At: time.Now().UTC(), Data: map[string]any{"reason": err.Error()}})
		return RemoteStatus{State: RemoteFailed, Reason: err.Error()}
	}
	extID := strconv.FormatInt(created.ID, 10)
	if err := s.Orders.SetExternalOrderID(ctx, o.ID, extID); err != nil {
		logger(s.Log).Error("store external order id failed", zap.String("orderId", o.ID), zap.String("externalId", extID), zap.Error(err))
		return RemoteStatus{State: RemoteFailed, ExternalID: extID, Reason: "external id not saved: " + err.Error()}
	}
	o.ExternalOrderID = &extID
	logger(s.Log).Info("order synced", zap.String("orderId", o.ID), zap.String("externalId", extID), zap.String("name", created.Name))
	return RemoteStatus{State: RemoteSynced, ExternalID: extID}
}

// Unlink removes the platform copy of an order. A copy that no longer
// exists counts as removed.
func (s *SyncService) Unlink(ctx context.Context, o *domain.Order) error {
	if s == nil || s.Platform == nil || o.ExternalOrderID == nil || *o.ExternalOrderID == "" {
		return nil
	}
	err := s.Platform.DeleteOrder(ctx, *o.ExternalOrderID)
	if errors.Is(err, shopify.ErrNotFound) {
		logger(s.Log).Warn("platform order already gone", zap.String("orderId", o.ID), zap.String("externalId", *o.ExternalOrderID))
		return nil
	}
	if err != nil {
		return ErrUpstream("delete platform order: " + err.Error())
	}
	return nil
}

func (s *SyncService) BuildOrderInput(o *domain.Order) shopify.OrderInput {
	lines := make([]shopify.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		li := shopify.LineItem{Price: it.Price, Quantity: it.Quantity}
		if id, ok := shopify.ParseID(it.ShopifyVariantID); ok {
			li.VariantID = id
		} else if id, ok := shopify.ParseID(it.ShopifyProductID); ok {
			li.ProductID = id
		} else {
			li.Title = it.Title
		}
		lines = append(lines, li)
	}
	first, last := splitName(o.CustomerName)
	return shopify.OrderInput{
		LineItems: lines,
		ShippingAddress: shopify.Address{
			FirstName: first,
			LastName:  last,
			Phone:     o.Phone,
			Address1:  o.Address,
			City:      orDefault(s.City, "Sydney"),
			Province:  orDefault(s.Province, "NSW"),
			Country:   orDefault(s.Country, "AU"),
		},
		FinancialStatus: "paid",
		Note:            s.note(o),
		Tags:            s.tags(),
	}
}

func (s *SyncService) note(o *domain.Order) string {
	payment := "Payment: Bank Transfer (已转账，截图已保存)"
	if o.PaymentMethod == domain.PaymentCashOnDelivery {
		payment = "Payment: Cash on Delivery (送货到户时付款)"
	}
	lines := []string{
		"Source: " + orDefault(s.SourceTag, "WeChat Group-buy"),
		"Delivery time: " + o.DeliveryTime,
		"Local order id: " + o.ID,
		payment,
	}
	if n := plainText(deref(o.Note)); n != "" {
		lines = append(lines, "Customer note: "+n)
	}
	return strings.Join(lines, "\n")
}

func (s *SyncService) tags() []string {
	if len(s.Tags) > 0 {
		return s.Tags
	}
	return []string{"TG", "WeChat Group-buy", "Local Payment"}
}

func (s *SyncService) events() EventPublisher {
	if s.Events == nil {
		return nopEvents{}
	}
	return s.Events
}

// splitName treats the first whitespace separated word as the first name.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return strings.TrimSpace(full), ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func orDefault(s, d string) string {
	if strings.TrimSpace(s) == "" {
		return d
	}
	return s
}
