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

type ServiceRequestService struct {
	Requests  ServiceRequestRepo
	Merchants MerchantRepo
	Assets    ObjectStore
	Events    EventPublisher
	Log       *zap.Logger
}

type ServiceRequestInput struct {
	ServiceType   string
	Title         string
	Description   string
	Address       string
	PreferredTime string
	UserName      string
	UserPhone     string
	Image         *domain.Upload
}

// Create stores a new open request. Without a session the returned token
// is the only way back to the request; it is not shown again.
func (s *ServiceRequestService) Create(ctx context.Context, in ServiceRequestInput, session *SessionProof) (*domain.ServiceRequest, string, error) {
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	in.Description = plainText(in.Description)
	in.UserName = strings.TrimSpace(in.UserName)
	in.UserPhone = strings.TrimSpace(in.UserPhone)
	if in.ServiceType == "" || in.Description == "" || in.UserName == "" || in.UserPhone == "" {
		return nil, "", ErrBadRequest("serviceType, description, userName and userPhone are required")
	}
	var image *string
	if in.Image != nil {
		ref, err := s.Assets.Put(ctx, *in.Image)
		if err != nil {
			return nil, "", err
		}
		image = &ref
	}
	now := time.Now().UTC()
	r := &domain.ServiceRequest{
		ID:                newID(),
		ServiceType:       in.ServiceType,
		Title:             strPtr(plainText(in.Title)),
		Description:       in.Description,
		Address:           strPtr(strings.TrimSpace(in.Address)),
		PreferredTime:     strPtr(strings.TrimSpace(in.PreferredTime)),
		ReferenceImageRef: image,
		Status:            domain.RequestOpen,
		UserName:          in.UserName,
		UserPhone:         in.UserPhone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	token := ""
	if session != nil && session.UserID != "" {
		r.UserID = &session.UserID
	} else {
		token = randomID()
		r.AccessToken = &token
	}
	if err := s.Requests.CreateServiceRequest(ctx, r); err != nil {
		return nil, "", err
	}
	s.publish(ctx, "service_request.created", r.ID, map[string]any{"serviceType": r.ServiceType})
	return r, token, nil
}

type RequestDetail struct {
	Request           *domain.ServiceRequest `json:"request"`
	Quotes            []domain.MerchantQuote `json:"quotes"`
	Selected          *domain.MerchantQuote  `json:"selectedQuote"`
	ReferenceImageURL string                 `json:"referenceImageUrl,omitempty"`
}

func (s *ServiceRequestService) load(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	r, ok, err := s.Requests.GetServiceRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound("service request")
	}
	return r, nil
}

func (s *ServiceRequestService) Get(ctx context.Context, id string, proofs ...AccessProof) (*RequestDetail, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(r, proofs); err != nil {
		return nil, err
	}
	quotes, err := s.Requests.ListQuotes(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].CreatedAt.After(quotes[j].CreatedAt) })
	d := &RequestDetail{Request: r, Quotes: quotes, ReferenceImageURL: s.resolve(ctx, r.ReferenceImageRef)}
	if r.SelectedQuoteID != nil {
		for i := range quotes {
			if quotes[i].ID == *r.SelectedQuoteID {
				d.Selected = &quotes[i]
			}
		}
	}
	return d, nil
}

// SelectQuote closes the request on quoteID. Selecting the already chosen
// quote again succeeds; choosing a different one after selection conflicts.
func (s *ServiceRequestService) SelectQuote(ctx context.Context, id, quoteID string, proofs ...AccessProof) (*domain.ServiceRequest, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(r, proofs); err != nil {
		return nil, err
	}
	q, ok, err := s.Requests.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if !ok || q.ServiceRequestID != r.ID {
		return nil, ErrBadRequest("quote does not belong to this request")
	}
	if r.Status == domain.RequestSelected {
		if r.SelectedQuoteID != nil && *r.SelectedQuoteID == quoteID {
			return r, nil
		}
		return nil, ErrConflict("a quote has already been selected")
	}
	applied, err := s.Requests.SelectQuote(ctx, r.ID, quoteID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrConflict("a quote has already been selected")
	}
	r.Status = domain.RequestSelected
	r.SelectedQuoteID = &quoteID
	r.UpdatedAt = time.Now().UTC()
	s.publish(ctx, "service_request.quote_selected", r.ID, map[string]any{"quoteId": quoteID, "merchantId": q.MerchantID})
	return r, nil
}

// MerchantFor resolves the acting merchant from a merchant session or a
// dashboard key. Only active merchants may act.
func (s *ServiceRequestService) MerchantFor(ctx context.Context, id *Identity, dashboardKey string) (*domain.Merchant, error) {
	var (
		m   *domain.Merchant
		ok  bool
		err error
	)
	switch {
	case id != nil && id.Role == domain.RoleMerchant:
		m, ok, err = s.Merchants.GetMerchantByUserID(ctx, id.UserID)
	case strings.TrimSpace(dashboardKey) != "":
		m, ok, err = s.Merchants.GetMerchantByDashboardKey(ctx, strings.TrimSpace(dashboardKey))
	default:
		return nil, ErrUnauthorized("merchant sign-in required")
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden("not a merchant")
	}
	if !m.Active {
		return nil, ErrForbidden("merchant is inactive")
	}
	return m, nil
}

type QuoteInput struct {
	Price       string
	Details     string
	ContactInfo string
}

// UpsertQuote records the merchant's single quote for an open request.
func (s *ServiceRequestService) UpsertQuote(ctx context.Context, m *domain.Merchant, requestID string, in QuoteInput) (*domain.MerchantQuote, error) {
	if m == nil || !m.Active {
		return nil, ErrForbidden("merchant is inactive")
	}
	r, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RequestOpen {
		return nil, ErrConflict("service request is no longer open")
	}
	price, err := pricing.NormalizePrice(in.Price)
	if err != nil {
		return nil, ErrBadRequest(err.Error())
	}
	now := time.Now().UTC()
	q, err := s.Requests.UpsertQuote(ctx, &domain.MerchantQuote{
		ID:               newID(),
		ServiceRequestID: r.ID,
		MerchantID:       m.ID,
		Price:            price,
		Details:          strPtr(plainText(in.Details)),
		ContactInfo:      strPtr(plainText(in.ContactInfo)),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "service_request.quoted", r.ID, map[string]any{"merchantId": m.ID, "price": price})
	return q, nil
}

type MerchantDashboard struct {
	Merchant *domain.Merchant        `json:"merchant"`
	Requests []domain.ServiceRequest `json:"requests"`
	Quoted   map[string]bool         `json:"quoted"`
}

func (s *ServiceRequestService) Dashboard(ctx context.Context, m *domain.Merchant) (*MerchantDashboard, error) {
	reqs, err := s.Requests.ListOpenServiceRequests(ctx, 50)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	quoted, err := s.Requests.QuotedRequestIDs(ctx, m.ID, ids)
	if err != nil {
		return nil, err
	}
	return &MerchantDashboard{Merchant: m, Requests: reqs, Quoted: quoted}, nil
}

type MerchantRequestView struct {
	Request           *domain.ServiceRequest `json:"request"`
	MyQuote           *domain.MerchantQuote  `json:"myQuote"`
	ReferenceImageURL string                 `json:"referenceImageUrl,omitempty"`
}

func (s *ServiceRequestService) MerchantView(ctx context.Context, m *domain.Merchant, id string) (*MerchantRequestView, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	q, ok, err := s.Requests.GetMerchantQuote(ctx, id, m.ID)
	if err != nil {
		return nil, err
	}
	v := &MerchantRequestView{Request: r, ReferenceImageURL: s.resolve(ctx, r.ReferenceImageRef)}
	if ok {
		v.MyQuote = q
	}
	return v, nil
}

func (s *ServiceRequestService) resolve(ctx context.Context, ref *string) string {
	if ref == nil || s.Assets == nil {
		return ""
	}
	u, err := s.Assets.Resolve(ctx, *ref)
	if err != nil {
		logger(s.Log).Warn("resolve image ref", zap.String("ref", *ref), zap.Error(err))
		return ""
	}
	return u
}

func (s *ServiceRequestService) publish(ctx context.Context, typ, id string, data map[string]any) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, domain.Event{Type: typ, SubjectID: id, At: time.Now().UTC(), Data: data})
}
