package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"groupbuy-backend/internal/domain"
)

// MemoryRepo keeps every table in process. Values are copied on the way
// in and out so callers never share state with the store.
type MemoryRepo struct {
	mu        sync.RWMutex
	orders    map[string]domain.Order
	packages  map[string]domain.Package
	users     map[string]domain.User
	merchants map[string]domain.Merchant
	requests  map[string]domain.ServiceRequest
	quotes    map[string]domain.MerchantQuote
	mappings  map[string]domain.ProductNameMapping
	services  map[string]domain.Service
	bookings  map[string]domain.ServiceBooking
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders:    make(map[string]domain.Order),
		packages:  make(map[string]domain.Package),
		users:     make(map[string]domain.User),
		merchants: make(map[string]domain.Merchant),
		requests:  make(map[string]domain.ServiceRequest),
		quotes:    make(map[string]domain.MerchantQuote),
		mappings:  make(map[string]domain.ProductNameMapping),
		services:  make(map[string]domain.Service),
		bookings:  make(map[string]domain.ServiceBooking),
	}
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.LineItem(nil), o.Items...)
	return o
}

func copyPackage(p domain.Package) domain.Package {
	p.Items = append([]domain.PackageItem(nil), p.Items...)
	p.DeliveryDates = append([]string(nil), p.DeliveryDates...)
	return p
}

func copyService(sv domain.Service) domain.Service {
	sv.TimeSlots = append([]string{}, sv.TimeSlots...)
	return sv
}

func ownedBy(merchantID *string, id string) bool {
	return merchantID != nil && *merchantID == id
}

// mine matches rows that belong to userID or carry phone.
func mine(rowUser *string, rowPhone, userID, phone string) bool {
	if rowUser != nil && userID != "" && *rowUser == userID {
		return true
	}
	return phone != "" && rowPhone == phone
}

func (r *MemoryRepo) CreateOrder(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return domain.ErrDuplicate
	}
	r.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r *MemoryRepo) GetOrder(_ context.Context, id string) (*domain.Order, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, false, nil
	}
	c := copyOrder(o)
	return &c, true, nil
}

func (r *MemoryRepo) UpdatePayment(_ context.Context, id string, method domain.PaymentMethod, proofRef *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil
	}
	o.PaymentMethod = method
	o.PaymentProofRef = proofRef
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemoryRepo) SetExternalOrderID(_ context.Context, id, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		o.ExternalOrderID = &externalID
		o.UpdatedAt = time.Now().UTC()
		r.orders[id] = o
	}
	return nil
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return true, nil
}

func (r *MemoryRepo) DeleteOrder(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.orders[id]
	delete(r.orders, id)
	return ok, nil
}

func (r *MemoryRepo) sortedOrders(match func(domain.Order) bool) []domain.Order {
	all := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if match(o) {
			all = append(all, copyOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all
}

func (r *MemoryRepo) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sortedOrders(func(o domain.Order) bool {
		if f.Status != "" && o.Status != f.Status {
			return false
		}
		if f.Phone != "" && !strings.Contains(o.Phone, f.Phone) {
			return false
		}
		if f.Region != "" && (o.Region == nil || *o.Region != f.Region) {
			return false
		}
		return f.DeliveryDate == "" || strings.Contains(o.DeliveryTime, f.DeliveryDate)
	})
	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryRepo) ListOrdersForUser(_ context.Context, userID, phone string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sortedOrders(func(o domain.Order) bool { return mine(o.UserID, o.Phone, userID, phone) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) GetPackage(_ context.Context, id string) (*domain.Package, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packages[id]
	if !ok {
		return nil, false, nil
	}
	c := copyPackage(p)
	return &c, true, nil
}

func (r *MemoryRepo) ListActivePackagesByIDs(_ context.Context, ids []string) ([]domain.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Package{}
	for _, id := range ids {
		if p, ok := r.packages[id]; ok && p.Active {
			out = append(out, copyPackage(p))
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListPackages(_ context.Context, activeOnly bool) ([]domain.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Package{}
	for _, p := range r.packages {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, copyPackage(p))
	}
	return out, nil
}

func (r *MemoryRepo) ListPackagesByMerchant(_ context.Context, merchantID string, activeOnly bool) ([]domain.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Package{}
	for _, p := range r.packages {
		if ownedBy(p.MerchantID, merchantID) && (p.Active || !activeOnly) {
			out = append(out, copyPackage(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) PutPackage(_ context.Context, p *domain.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[p.ID] = copyPackage(*p)
	return nil
}

func (r *MemoryRepo) DeletePackage(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.packages[id]
	delete(r.packages, id)
	return ok, nil
}

func (r *MemoryRepo) CreateUser(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Phone == u.Phone {
			return domain.ErrDuplicate
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryRepo) GetUser(_ context.Context, id string) (*domain.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (r *MemoryRepo) GetUserByPhone(_ context.Context, phone string) (*domain.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Phone == phone {
			return &u, true, nil
		}
	}
	return nil, false, nil
}

func (r *MemoryRepo) UpdateUserRole(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
		r.users[id] = u
	}
	return nil
}

func (r *MemoryRepo) PutMerchant(_ context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merchants[m.ID] = *m
	return nil
}

func (r *MemoryRepo) findMerchant(match func(domain.Merchant) bool) (*domain.Merchant, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if match(m) {
			return &m, true, nil
		}
	}
	return nil, false, nil
}

func (r *MemoryRepo) GetMerchant(_ context.Context, id string) (*domain.Merchant, bool, error) {
	return r.findMerchant(func(m domain.Merchant) bool { return m.ID == id })
}

func (r *MemoryRepo) GetMerchantByUserID(_ context.Context, userID string) (*domain.Merchant, bool, error) {
	return r.findMerchant(func(m domain.Merchant) bool { return m.UserID != nil && *m.UserID == userID })
}

func (r *MemoryRepo) GetMerchantByDashboardKey(_ context.Context, key string) (*domain.Merchant, bool, error) {
	return r.findMerchant(func(m domain.Merchant) bool { return m.DashboardKey != nil && *m.DashboardKey == key })
}

func (r *MemoryRepo) ListMerchants(_ context.Context) ([]domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Merchant, 0, len(r.merchants))
	for _, m := range r.merchants {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) SearchMerchants(_ context.Context, q string, page, limit int) ([]domain.MerchantSummary, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(q)
	all := []domain.MerchantSummary{}
	for _, m := range r.merchants {
		if !m.Active {
			continue
		}
		if needle != "" && !containsFold(m.Name, needle) && !containsFold(deref(m.Description), needle) && !containsFold(deref(m.Address), needle) {
			continue
		}
		sum := domain.MerchantSummary{Merchant: m}
		for _, p := range r.packages {
			if ownedBy(p.MerchantID, m.ID) {
				sum.PackageCount++
			}
		}
		for _, sv := range r.services {
			if ownedBy(sv.MerchantID, m.ID) {
				sum.ServiceCount++
			}
		}
		all = append(all, sum)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if needle == "" {
			if a.PackageCount != b.PackageCount {
				return a.PackageCount > b.PackageCount
			}
			if a.ServiceCount != b.ServiceCount {
				return a.ServiceCount > b.ServiceCount
			}
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
	total := len(all)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	return all[start:end], total, nil
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (r *MemoryRepo) CreateServiceRequest(_ context.Context, sr *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[sr.ID] = *sr
	return nil
}

func (r *MemoryRepo) GetServiceRequest(_ context.Context, id string) (*domain.ServiceRequest, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sr, ok := r.requests[id]
	if !ok {
		return nil, false, nil
	}
	return &sr, true, nil
}

func (r *MemoryRepo) ListOpenServiceRequests(_ context.Context, limit int) ([]domain.ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.ServiceRequest{}
	for _, sr := range r.requests {
		if sr.Status == domain.RequestOpen {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListServiceRequestsFor(_ context.Context, userID, phone string, limit int) ([]domain.ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.ServiceRequest{}
	for _, sr := range r.requests {
		if mine(sr.UserID, sr.UserPhone, userID, phone) {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SelectQuote(_ context.Context, requestID, quoteID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sr, ok := r.requests[requestID]
	if !ok {
		return false, nil
	}
	q, ok := r.quotes[quoteID]
	if !ok || q.ServiceRequestID != requestID {
		return false, nil
	}
	already := sr.SelectedQuoteID != nil && *sr.SelectedQuoteID == quoteID
	if sr.Status != domain.RequestOpen && !already {
		return false, nil
	}
	sr.Status = domain.RequestSelected
	sr.SelectedQuoteID = &quoteID
	sr.UpdatedAt = time.Now().UTC()
	r.requests[requestID] = sr
	return true, nil
}

func (r *MemoryRepo) UpsertQuote(_ context.Context, q *domain.MerchantQuote) (*domain.MerchantQuote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.quotes {
		if existing.ServiceRequestID == q.ServiceRequestID && existing.MerchantID == q.MerchantID {
			existing.Price = q.Price
			existing.Details = q.Details
			existing.ContactInfo = q.ContactInfo
			existing.UpdatedAt = q.UpdatedAt
			r.quotes[id] = existing
			return &existing, nil
		}
	}
	r.quotes[q.ID] = *q
	c := *q
	return &c, nil
}

func (r *MemoryRepo) GetQuote(_ context.Context, id string) (*domain.MerchantQuote, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, false, nil
	}
	return &q, true, nil
}

func (r *MemoryRepo) GetMerchantQuote(_ context.Context, requestID, merchantID string) (*domain.MerchantQuote, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, q := range r.quotes {
		if q.ServiceRequestID == requestID && q.MerchantID == merchantID {
			return &q, true, nil
		}
	}
	return nil, false, nil
}

func (r *MemoryRepo) ListQuotes(_ context.Context, requestID string) ([]domain.MerchantQuote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.MerchantQuote{}
	for _, q := range r.quotes {
		if q.ServiceRequestID == requestID {
			q.MerchantName = r.merchants[q.MerchantID].Name
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) QuotedRequestIDs(_ context.Context, merchantID string, requestIDs []string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := map[string]bool{}
	for _, id := range requestIDs {
		want[id] = true
	}
	out := map[string]bool{}
	for _, q := range r.quotes {
		if q.MerchantID == merchantID && want[q.ServiceRequestID] {
			out[q.ServiceRequestID] = true
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListMappings(_ context.Context) ([]domain.ProductNameMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProductNameMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnglishName < out[j].EnglishName })
	return out, nil
}

func (r *MemoryRepo) GetMapping(_ context.Context, id string) (*domain.ProductNameMapping, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[id]
	if !ok {
		return nil, false, nil
	}
	return &m, true, nil
}

func (r *MemoryRepo) MappingsByProductIDs(_ context.Context, productIDs []string) (map[string]domain.ProductNameMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := map[string]bool{}
	for _, id := range productIDs {
		want[id] = true
	}
	out := map[string]domain.ProductNameMapping{}
	for _, m := range r.mappings {
		if want[m.ShopifyProductID] {
			out[m.ShopifyProductID] = m
		}
	}
	return out, nil
}

func (r *MemoryRepo) UpsertMapping(_ context.Context, m *domain.ProductNameMapping) (*domain.ProductNameMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.mappings {
		if existing.ShopifyProductID == m.ShopifyProductID {
			existing.ShopifyVariantID = m.ShopifyVariantID
			existing.EnglishName = m.EnglishName
			existing.ChineseName = m.ChineseName
			existing.UpdatedAt = m.UpdatedAt
			r.mappings[id] = existing
			return &existing, nil
		}
	}
	r.mappings[m.ID] = *m
	c := *m
	return &c, nil
}

func (r *MemoryRepo) UpdateMapping(_ context.Context, m *domain.ProductNameMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.ID] = *m
	return nil
}

func (r *MemoryRepo) DeleteMapping(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.mappings[id]
	delete(r.mappings, id)
	return ok, nil
}

func (r *MemoryRepo) PutService(_ context.Context, sv *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[sv.ID] = copyService(*sv)
	return nil
}

func (r *MemoryRepo) GetService(_ context.Context, id string) (*domain.Service, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sv, ok := r.services[id]
	if !ok {
		return nil, false, nil
	}
	c := copyService(sv)
	return &c, true, nil
}

func (r *MemoryRepo) listServices(match func(domain.Service) bool) []domain.Service {
	out := []domain.Service{}
	for _, sv := range r.services {
		if match(sv) {
			out = append(out, copyService(sv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (r *MemoryRepo) ListServices(_ context.Context, activeOnly bool) ([]domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listServices(func(sv domain.Service) bool { return sv.Active || !activeOnly }), nil
}

func (r *MemoryRepo) ListServicesByMerchant(_ context.Context, merchantID string, activeOnly bool) ([]domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listServices(func(sv domain.Service) bool {
		return ownedBy(sv.MerchantID, merchantID) && (sv.Active || !activeOnly)
	}), nil
}

func (r *MemoryRepo) DeleteService(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; !ok {
		return false, nil
	}
	delete(r.services, id)
	for bid, b := range r.bookings {
		if b.ServiceID == id {
			delete(r.bookings, bid)
		}
	}
	return true, nil
}

func (r *MemoryRepo) CreateBooking(_ context.Context, b *domain.ServiceBooking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[b.ServiceID]; !ok {
		return domain.ErrMissingParent
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *MemoryRepo) withServiceName(b domain.ServiceBooking) domain.ServiceBooking {
	b.ServiceName = r.services[b.ServiceID].Name
	return b
}

func (r *MemoryRepo) GetBooking(_ context.Context, id string) (*domain.ServiceBooking, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, false, nil
	}
	b = r.withServiceName(b)
	return &b, true, nil
}

func (r *MemoryRepo) ListBookingsFor(_ context.Context, userID, phone string, limit int) ([]domain.ServiceBooking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.ServiceBooking{}
	for _, b := range r.bookings {
		if mine(b.UserID, b.Phone, userID, phone) {
			out = append(out, r.withServiceName(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
