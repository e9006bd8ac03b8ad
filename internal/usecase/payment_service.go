package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/pricing"
)

type PaymentService struct {
	Orders OrderRepo
	Assets ObjectStore
	Sync   *SyncService
	Events EventPublisher
	Log    *zap.Logger
}

// ownedOrder loads orderID and checks it was placed with phone.
func (s *PaymentService) ownedOrder(ctx context.Context, phone, orderID string) (*domain.Order, error) {
	o, ok, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound("order")
	}
	if phone == "" || o.Phone != phone {
		return nil, ErrForbidden("order belongs to another customer")
	}
	return o, nil
}

type PaymentView struct {
	Order    *domain.Order `json:"order"`
	ProofURL string        `json:"paymentProofUrl,omitempty"`
	Total    string        `json:"total"`
}

func (s *PaymentService) View(ctx context.Context, phone, orderID string) (*PaymentView, error) {
	o, err := s.ownedOrder(ctx, phone, orderID)
	if err != nil {
		return nil, err
	}
	v := &PaymentView{Order: o, Total: pricing.LineTotal(o.Items).StringFixed(2)}
	if o.PaymentProofRef != nil {
		u, err := s.Assets.Resolve(ctx, *o.PaymentProofRef)
		if err != nil {
			logger(s.Log).Warn("resolve payment proof", zap.String("orderId", o.ID), zap.Error(err))
		} else {
			v.ProofURL = u
		}
	}
	return v, nil
}

// Capture records the customer's payment choice. The payment fields are
// committed before the platform sync, whose failure is only reported.
func (s *PaymentService) Capture(ctx context.Context, phone, orderID, method string, proof *domain.Upload) (Outcome, error) {
	o, err := s.ownedOrder(ctx, phone, orderID)
	if err != nil {
		return Outcome{}, err
	}
	m, ok := domain.ParsePaymentMethod(method)
	if !ok {
		return Outcome{}, ErrBadRequest("unknown payment method")
	}
	if m == domain.PaymentTransfer && proof == nil {
		return Outcome{}, ErrBadRequest("payment proof required for bank transfer")
	}
	if o.Status.Terminal() {
		return Outcome{}, ErrConflict("order is " + string(o.Status))
	}
	var ref *string
	if m == domain.PaymentTransfer {
		r, err := s.Assets.Put(ctx, *proof)
		if err != nil {
			return Outcome{}, err
		}
		ref = &r
	}
	if err := s.Orders.UpdatePayment(ctx, o.ID, m, ref); err != nil {
		return Outcome{}, err
	}
	o.PaymentMethod = m
	o.PaymentProofRef = ref
	o.UpdatedAt = time.Now().UTC()

	ev := orderEvent("order.payment_captured", o)
	if s.Events != nil {
		s.Events.Publish(ctx, ev)
	}
	remote := s.Sync.Sync(ctx, o)
	logger(s.Log).Info("payment captured",
		zap.String("orderId", o.ID),
		zap.String("paymentMethod", string(m)),
		zap.Bool("proof", ref != nil),
		zap.String("sync", string(remote.State)))
	return Outcome{OrderID: o.ID, Remote: remote}, nil
}
