package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/pricing"
)

// MerchantService covers a merchant's own storefront and the public
// directory of merchants.
type MerchantService struct {
	Merchants MerchantRepo
	Users     UserRepo
	Packages  *PackageService
	Catalog   ServiceCatalogRepo
	Assets    ObjectStore
	Events    EventPublisher
	Log       *zap.Logger
}

type MerchantProfileInput struct {
	Name        string
	ContactName string
	Phone       string
	WeChat      string
	Email       string
	Description string
	Address     string
	OpenHours   string
	ImageURL    string
	Image       *domain.Upload
}

// Onboard turns a signed-in user into a merchant. Calling it again returns
// the existing merchant unchanged.
func (s *MerchantService) Onboard(ctx context.Context, userID string, in MerchantProfileInput) (*domain.Merchant, *domain.User, error) {
	u, ok, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrUnauthorized("unknown user")
	}
	if u.Role == domain.RoleAdmin {
		return nil, nil, ErrForbidden("administrators cannot open a store")
	}
	m, ok, err := s.Merchants.GetMerchantByUserID(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		name := plainText(in.Name)
		if name == "" {
			return nil, nil, ErrBadRequest("storeName required")
		}
		key := randomID()
		now := time.Now().UTC()
		m = &domain.Merchant{
			ID:           newID(),
			UserID:       &u.ID,
			Name:         name,
			ContactName:  strPtr(plainText(in.ContactName)),
			Phone:        strPtr(u.Phone),
			WeChat:       strPtr(plainText(in.WeChat)),
			Email:        strPtr(u.Email),
			Description:  strPtr(plainText(in.Description)),
			Address:      strPtr(plainText(in.Address)),
			OpenHours:    strPtr(plainText(in.OpenHours)),
			DashboardKey: &key,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.Merchants.PutMerchant(ctx, m); err != nil {
			return nil, nil, err
		}
		s.publish(ctx, "merchant.onboarded", m.ID, map[string]any{"userId": u.ID})
		logger(s.Log).Info("merchant onboarded", zap.String("merchantId", m.ID), zap.String("userId", u.ID))
	}
	if u.Role != domain.RoleMerchant {
		if err := s.Users.UpdateUserRole(ctx, u.ID, domain.RoleMerchant); err != nil {
			return nil, nil, err
		}
		u.Role = domain.RoleMerchant
	}
	return m, u, nil
}

// own resolves the caller's merchant profile.
func (s *MerchantService) own(ctx context.Context, userID string) (*domain.Merchant, error) {
	m, ok, err := s.Merchants.GetMerchantByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden("merchant profile not found")
	}
	return m, nil
}

func (s *MerchantService) ownActive(ctx context.Context, userID string) (*domain.Merchant, error) {
	m, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, ErrForbidden("merchant is inactive")
	}
	return m, nil
}

type MerchantHome struct {
	Merchant *domain.Merchant `json:"merchant"`
	Packages []domain.Package `json:"packages"`
	Services []domain.Service `json:"services"`
}

// Mine lists everything the merchant owns, inactive entries included.
func (s *MerchantService) Mine(ctx context.Context, userID string) (*MerchantHome, error) {
	m, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	pkgs, err := s.Packages.Packages.ListPackagesByMerchant(ctx, m.ID, false)
	if err != nil {
		return nil, err
	}
	svcs, err := s.Catalog.ListServicesByMerchant(ctx, m.ID, false)
	if err != nil {
		return nil, err
	}
	s.present(ctx, m)
	return &MerchantHome{Merchant: m, Packages: pkgs, Services: svcs}, nil
}

// UpdateProfile rewrites the contact fields. Blank fields are cleared,
// except the name which keeps its old value. An uploaded image wins over
// an image URL, and with neither the old image stays.
func (s *MerchantService) UpdateProfile(ctx context.Context, userID string, in MerchantProfileInput) (*domain.Merchant, error) {
	m, err := s.own(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := plainText(in.Name); name != "" {
		m.Name = name
	}
	m.ContactName = strPtr(plainText(in.ContactName))
	m.Phone = strPtr(strings.TrimSpace(in.Phone))
	m.WeChat = strPtr(plainText(in.WeChat))
	m.Email = strPtr(strings.TrimSpace(in.Email))
	m.Description = strPtr(plainText(in.Description))
	m.Address = strPtr(plainText(in.Address))
	m.OpenHours = strPtr(plainText(in.OpenHours))
	switch {
	case in.Image != nil:
		ref, err := s.Assets.Put(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		m.ImageURL = &ref
	case strings.TrimSpace(in.ImageURL) != "":
		m.ImageURL = strPtr(strings.TrimSpace(in.ImageURL))
	}
	m.UpdatedAt = time.Now().UTC()
	if err := s.Merchants.PutMerchant(ctx, m); err != nil {
		return nil, err
	}
	s.present(ctx, m)
	return m, nil
}

func (s *MerchantService) CreatePackage(ctx context.Context, userID string, in PackageInput) (*domain.Package, error) {
	m, err := s.ownActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	in.MerchantID = &m.ID
	p, err := s.Packages.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "merchant.package_created", m.ID, map[string]any{"packageId": p.ID})
	return p, nil
}

// DeletePackage removes one of the merchant's own packages. Packages of
// other merchants read as missing.
func (s *MerchantService) DeletePackage(ctx context.Context, userID, id string) error {
	m, err := s.ownActive(ctx, userID)
	if err != nil {
		return err
	}
	p, ok, err := s.Packages.Packages.GetPackage(ctx, id)
	if err != nil {
		return err
	}
	if !ok || !ownedBy(p.MerchantID, m.ID) {
		return ErrNotFound("package")
	}
	return s.Packages.Delete(ctx, id)
}

type ServiceInput struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *string  `json:"price"`
	DurationMins *int     `json:"durationMins"`
	TimeSlots    []string `json:"timeSlots"`
	ImageURL     *string  `json:"imageUrl"`
	Active       *bool    `json:"isActive"`
	SortOrder    *int     `json:"sortOrder"`
}

func (s *MerchantService) CreateService(ctx context.Context, userID string, in ServiceInput) (*domain.Service, error) {
	m, err := s.ownActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := ""
	if in.Name != nil {
		name = plainText(*in.Name)
	}
	if name == "" {
		return nil, ErrBadRequest("name required")
	}
	now := time.Now().UTC()
	sv := &domain.Service{
		ID:         newID(),
		MerchantID: &m.ID,
		Name:       name,
		TimeSlots:  []string{},
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Description != nil {
		sv.Description = strPtr(plainText(*in.Description))
	}
	if in.Price != nil && strings.TrimSpace(*in.Price) != "" {
		price, err := pricing.NormalizePrice(*in.Price)
		if err != nil {
			return nil, ErrBadRequest("price: " + err.Error())
		}
		sv.Price = &price
	}
	if in.DurationMins != nil {
		if *in.DurationMins <= 0 {
			return nil, ErrBadRequest("durationMins must be positive")
		}
		sv.DurationMins = in.DurationMins
	}
	for _, slot := range in.TimeSlots {
		if slot = strings.TrimSpace(slot); slot != "" {
			sv.TimeSlots = append(sv.TimeSlots, slot)
		}
	}
	if in.ImageURL != nil {
		sv.ImageURL = strPtr(strings.TrimSpace(*in.ImageURL))
	}
	if in.Active != nil {
		sv.Active = *in.Active
	}
	if in.SortOrder != nil {
		sv.SortOrder = *in.SortOrder
	}
	if err := s.Catalog.PutService(ctx, sv); err != nil {
		return nil, err
	}
	s.publish(ctx, "merchant.service_created", m.ID, map[string]any{"serviceId": sv.ID})
	return sv, nil
}

func (s *MerchantService) DeleteService(ctx context.Context, userID, id string) error {
	m, err := s.ownActive(ctx, userID)
	if err != nil {
		return err
	}
	sv, ok, err := s.Catalog.GetService(ctx, id)
	if err != nil {
		return err
	}
	if !ok || !ownedBy(sv.MerchantID, m.ID) {
		return ErrNotFound("service")
	}
	if _, err := s.Catalog.DeleteService(ctx, id); err != nil {
		return err
	}
	return nil
}

type MerchantDirectory struct {
	Q          string                   `json:"q"`
	Merchants  []domain.MerchantSummary `json:"merchants"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	Total      int                      `json:"total"`
	TotalPages int                      `json:"totalPages"`
}

const maxSearchRunes = 80

// Search pages through active merchants. Queries are trimmed and cut to
// 80 characters; limit defaults to 12 and is capped at 50.
func (s *MerchantService) Search(ctx context.Context, q string, page, limit int) (*MerchantDirectory, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) > maxSearchRunes {
		q = string([]rune(q)[:maxSearchRunes])
	}
	page = max(page, 1)
	if limit < 1 {
		limit = 12
	}
	limit = min(limit, 50)
	ms, total, err := s.Merchants.SearchMerchants(ctx, q, page, limit)
	if err != nil {
		return nil, err
	}
	for i := range ms {
		s.present(ctx, &ms[i].Merchant)
	}
	return &MerchantDirectory{
		Q:          q,
		Merchants:  ms,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: max(1, (total+limit-1)/limit),
	}, nil
}

type MerchantDetail struct {
	Merchant *domain.Merchant `json:"merchant"`
	Packages []domain.Package `json:"packages"`
	Services []domain.Service `json:"services"`
}

// Detail is the public page of an active merchant with its active
// packages and services.
func (s *MerchantService) Detail(ctx context.Context, id string) (*MerchantDetail, error) {
	m, ok, err := s.Merchants.GetMerchant(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !ok || !m.Active {
		return nil, ErrNotFound("merchant")
	}
	pkgs, err := s.Packages.Packages.ListPackagesByMerchant(ctx, m.ID, true)
	if err != nil {
		return nil, err
	}
	for i := range pkgs {
		pkgs[i].Items = s.Packages.Mappings.Translate(ctx, pkgs[i].Items)
	}
	svcs, err := s.Catalog.ListServicesByMerchant(ctx, m.ID, true)
	if err != nil {
		return nil, err
	}
	s.present(ctx, m)
	return &MerchantDetail{Merchant: m, Packages: pkgs, Services: svcs}, nil
}

// present swaps a stored image ref for a URL a browser can load.
func (s *MerchantService) present(ctx context.Context, m *domain.Merchant) {
	if m.ImageURL == nil || s.Assets == nil {
		return
	}
	u, err := s.Assets.Resolve(ctx, *m.ImageURL)
	if err != nil {
		logger(s.Log).Warn("resolve merchant image", zap.String("merchantId", m.ID), zap.Error(err))
		return
	}
	m.ImageURL = &u
}

func (s *MerchantService) publish(ctx context.Context, typ, id string, data map[string]any) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, domain.Event{Type: typ, SubjectID: id, At: time.Now().UTC(), Data: data})
}

func ownedBy(merchantID *string, id string) bool {
	return merchantID != nil && *merchantID == id
}
