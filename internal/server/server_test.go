package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"groupbuy-backend/internal/config"
	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/asset"
	"groupbuy-backend/internal/infrastructure/repo"
	"groupbuy-backend/internal/infrastructure/session"
	"groupbuy-backend/internal/infrastructure/shopify"
	"groupbuy-backend/internal/usecase"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type fakePlatform struct {
	mu         sync.Mutex
	configured bool
	createErr  error
	deleteErr  error
	created    []shopify.OrderInput
	deleted    []string
}

func (f *fakePlatform) Configured() bool { return f.configured }

func (f *fakePlatform) CreateOrder(_ context.Context, in shopify.OrderInput) (shopify.CreatedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return shopify.CreatedOrder{}, f.createErr
	}
	f.created = append(f.created, in)
	return shopify.CreatedOrder{ID: int64(1000 + len(f.created)), Name: "#1001"}, nil
}

func (f *fakePlatform) DeleteOrder(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type harness struct {
	t        *testing.T
	h        http.Handler
	repo     *repo.MemoryRepo
	platform *fakePlatform
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Env = "test"
	cfg.JWTSecret = "test-secret"
	cfg.AdminUser = "admin"
	cfg.AdminPassword = "s3cret"
	cfg.UploadsDir = t.TempDir()
	cfg.RateLimit = 0

	r := repo.NewMemoryRepo()
	p := &fakePlatform{}
	assets := &asset.Mux{Local: asset.NewFSWriter(cfg.UploadsDir, "")}
	assets.Primary = assets.Local
	mappings := &usecase.MappingService{Repo: r}
	sync := &usecase.SyncService{Orders: r, Platform: p}
	packages := &usecase.PackageService{Packages: r, Mappings: mappings, Regions: cfg.Regions}

	srv := New(cfg, Deps{
		Auth:     &usecase.AuthService{Users: r, JWTSecret: cfg.JWTSecret, TokenTTL: time.Hour},
		Orders:   &usecase.OrderService{Orders: r, Packages: r, Users: r, Mappings: mappings, Assets: assets, Sync: sync},
		Payments: &usecase.PaymentService{Orders: r, Assets: assets, Sync: sync},
		Carts:    &usecase.CartService{Packages: r, Mappings: mappings},
		Packages: packages,
		Requests: &usecase.ServiceRequestService{Requests: r, Merchants: r, Assets: assets},
		Merchant: &usecase.MerchantService{Merchants: r, Users: r, Packages: packages, Catalog: r, Assets: assets},
		Bookings: &usecase.BookingService{Catalog: r, Assets: assets},
		Accounts: &usecase.AccountService{Users: r, Orders: r, Requests: r, Catalog: r},
		Admin:    &usecase.AdminService{Orders: r, Merchants: r, Assets: assets, Sync: sync},
		Mappings: mappings,
		Sessions: session.NewMemoryStore(time.Hour),
	})
	return &harness{t: t, h: srv.Handler(), repo: r, platform: p}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formReq(path string, fields map[string]string, fileField string, file []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if file != nil {
		fw, _ := w.CreateFormFile(fileField, "proof.png")
		_, _ = fw.Write(file)
	}
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func urlencodedReq(path string, fields url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *harness) register(phone string) string {
	rec := h.do(jsonReq(http.MethodPost, "/api/auth/register", map[string]string{"phone": phone, "password": "hunter22"}))
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(h.t, rec)["token"].(string)
}

func sessionCookieOf(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	return nil
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/api/packages/missing", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := h.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	e := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "NotFound", e["code"])
	assert.Equal(t, "req-42", e["requestId"])
}

func TestCartCheckoutClearsCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repo.PutPackage(ctx, &domain.Package{
		ID:            "p1",
		Name:          "Fruit box",
		Price:         "59.90",
		Items:         []domain.PackageItem{{Title: "Apple", Quantity: 2}, {Title: "Pear", Quantity: 3}},
		DeliveryDates: []string{"Sat 8 Mar"},
		Region:        "Inner West",
		Active:        true,
	}))
	token := h.register("0411222333")

	rec := h.do(jsonReq(http.MethodPost, "/api/cart/item", map[string]any{"packageId": "p1", "quantity": 2}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "119.80", decode(t, rec)["total"])
	sid := sessionCookieOf(rec)
	require.NotNil(t, sid)

	req := jsonReq(http.MethodPost, "/api/cart/checkout", map[string]string{
		"customerName": "Lin Wei",
		"address":      "1 King St",
		"deliveryTime": "Sun 9 Mar",
	})
	req.AddCookie(sid)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "date not offered")

	req = jsonReq(http.MethodPost, "/api/cart/checkout", map[string]string{
		"customerName": "Lin Wei",
		"address":      "1 King St",
		"deliveryTime": "Sat 8 Mar",
	})
	req.AddCookie(sid)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode(t, rec)["orderId"].(string)

	o, ok, err := h.repo.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0411222333", o.Phone)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 4, o.Items[0].Quantity)
	assert.Equal(t, "11.98", o.Items[0].Price)
	assert.Equal(t, "Inner West", *o.Region)

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(sid)
	rec = h.do(req)
	assert.EqualValues(t, 0, decode(t, rec)["count"])
}

func TestCheckoutRequiresSignIn(t *testing.T) {
	h := newHarness(t)
	rec := h.do(jsonReq(http.MethodPost, "/api/cart/checkout", map[string]string{"customerName": "a", "address": "b", "deliveryTime": "c"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrderReportsSyncFailure(t *testing.T) {
	h := newHarness(t)
	fields := map[string]string{
		"customerName":  "Lin Wei",
		"phone":         "0411222333",
		"address":       "1 King St",
		"deliveryTime":  "Sat 8 Mar",
		"paymentMethod": "transfer",
		"items":         `[{"title":"Apple","price":"$5","quantity":2}]`,
	}

	rec := h.do(formReq("/api/orders", fields, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "transfer needs proof")

	rec = h.do(formReq("/api/orders", fields, "paymentProof", pngBytes))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "skipped", decode(t, rec)["sync"].(map[string]any)["state"])

	h.platform.configured = true
	h.platform.createErr = errors.New("shopify: 422 invalid")
	rec = h.do(formReq("/api/orders", fields, "paymentProof", pngBytes))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "failed", body["sync"].(map[string]any)["state"])

	o, ok, err := h.repo.GetOrder(context.Background(), body["orderId"].(string))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5.00", o.Items[0].Price)
	require.NotNil(t, o.PaymentProofRef)
}

func TestCreateOrderRejectsNonImageProof(t *testing.T) {
	h := newHarness(t)
	rec := h.do(formReq("/api/orders", map[string]string{
		"customerName": "Lin Wei",
		"phone":        "0411222333",
		"address":      "1 King St",
		"deliveryTime": "Sat 8 Mar",
		"items":        `[{"title":"Apple","price":"5","quantity":1}]`,
	}, "paymentProof", []byte("plain text, not an image")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCapturePaymentPersistsWhenSyncFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.register("0411222333")
	require.NoError(t, h.repo.CreateOrder(ctx, &domain.Order{
		ID:            "o1",
		Phone:         "0411222333",
		Items:         []domain.LineItem{{Title: "Apple", Price: "5.00", Quantity: 1}},
		PaymentMethod: domain.PaymentTransfer,
		Status:        domain.OrderNew,
	}))
	h.platform.configured = true
	h.platform.createErr = errors.New("timeout")

	req := formReq("/api/payment/o1", map[string]string{"paymentMethod": "cash_on_delivery"}, "", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "failed", decode(t, rec)["sync"].(map[string]any)["state"])

	o, _, err := h.repo.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCashOnDelivery, o.PaymentMethod)
	assert.Nil(t, o.PaymentProofRef)

	other := h.register("0499888777")
	req = formReq("/api/payment/o1", map[string]string{"paymentMethod": "cash_on_delivery"}, "", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusForbidden, h.do(req).Code)
}

func TestPlainFormsWithoutProof(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.register("0411222333")
	require.NoError(t, h.repo.CreateOrder(ctx, &domain.Order{ID: "o1", Phone: "0411222333", PaymentMethod: domain.PaymentTransfer, Status: domain.OrderNew}))

	req := urlencodedReq("/api/payment/o1", url.Values{"paymentMethod": {"cash_on_delivery"}})
	req.Header.Set("Authorization", "Bearer "+token)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o, _, _ := h.repo.GetOrder(ctx, "o1")
	assert.Equal(t, domain.PaymentCashOnDelivery, o.PaymentMethod)

	req = urlencodedReq("/api/payment/o1", url.Values{"paymentMethod": {"transfer"}})
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusBadRequest, h.do(req).Code, "transfer still needs proof")

	fields := url.Values{
		"customerName":  {"Lin Wei"},
		"phone":         {"0411222333"},
		"address":       {"1 King St"},
		"deliveryTime":  {"Sat 8 Mar"},
		"paymentMethod": {"cash_on_delivery"},
		"items":         {`[{"title":"Apple","price":"5","quantity":1}]`},
	}
	rec = h.do(urlencodedReq("/api/orders", fields))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	fields.Set("paymentMethod", "transfer")
	assert.Equal(t, http.StatusBadRequest, h.do(urlencodedReq("/api/orders", fields)).Code)
}

func TestServiceRequestTokenAccess(t *testing.T) {
	h := newHarness(t)
	rec := h.do(formReq("/api/service-requests", map[string]string{
		"serviceType": "cleaning",
		"description": "<b>Deep</b> clean",
		"userName":    "Lin",
		"userPhone":   "0411222333",
	}, "", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	id := body["id"].(string)
	token := body["accessToken"].(string)
	require.NotEmpty(t, token)

	assert.Equal(t, http.StatusUnauthorized, h.do(httptest.NewRequest(http.MethodGet, "/api/service-requests/"+id, nil)).Code)
	assert.Equal(t, http.StatusForbidden, h.do(httptest.NewRequest(http.MethodGet, "/api/service-requests/"+id+"?token=nope", nil)).Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/service-requests/"+id+"?token="+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	req := decode(t, rec)["request"].(map[string]any)
	assert.Equal(t, "Deep clean", req["description"])
	assert.NotContains(t, rec.Body.String(), token)
}

func TestAdminRequiresCredentials(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.SetBasicAuth("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, h.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])

	token := h.register("0411222333")
	req = httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, h.do(req).Code, "USER role")
}

func TestAdminDeleteOrderWithRemoteCopy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ext := "5551"
	for _, id := range []string{"gone", "kept"} {
		require.NoError(t, h.repo.CreateOrder(ctx, &domain.Order{ID: id, Phone: "0400", Status: domain.OrderNew, ExternalOrderID: &ext}))
	}
	h.platform.configured = true

	h.platform.deleteErr = shopify.ErrNotFound
	req := httptest.NewRequest(http.MethodDelete, "/api/admin/orders/gone", nil)
	req.SetBasicAuth("admin", "s3cret")
	assert.Equal(t, http.StatusOK, h.do(req).Code)
	_, ok, _ := h.repo.GetOrder(ctx, "gone")
	assert.False(t, ok)

	h.platform.deleteErr = errors.New("shopify: 500")
	req = httptest.NewRequest(http.MethodDelete, "/api/admin/orders/kept", nil)
	req.SetBasicAuth("admin", "s3cret")
	assert.Equal(t, http.StatusBadGateway, h.do(req).Code)
	_, ok, _ = h.repo.GetOrder(ctx, "kept")
	assert.True(t, ok)
}

func TestAdminStatusTransitions(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.CreateOrder(context.Background(), &domain.Order{ID: "o1", Phone: "0400", Status: domain.OrderNew}))

	patch := func(status string) int {
		req := jsonReq(http.MethodPatch, "/api/admin/orders/o1/status", map[string]string{"internalStatus": status})
		req.SetBasicAuth("admin", "s3cret")
		return h.do(req).Code
	}
	assert.Equal(t, http.StatusBadRequest, patch("shipped"))
	assert.Equal(t, http.StatusOK, patch("preparing"))
	assert.Equal(t, http.StatusConflict, patch("new"))
	assert.Equal(t, http.StatusOK, patch("cancelled"))
	assert.Equal(t, http.StatusConflict, patch("completed"))
}

func TestRateLimitAnonymousWrites(t *testing.T) {
	cfg := config.Default()
	cfg.Env = "test"
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	r := repo.NewMemoryRepo()
	srv := New(cfg, Deps{
		Auth:     &usecase.AuthService{Users: r, JWTSecret: "x"},
		Sessions: session.NewMemoryStore(time.Hour),
	})
	h := srv.Handler()
	login := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, jsonReq(http.MethodPost, "/api/auth/login", map[string]string{"phone": "1", "password": "x"}))
		return rec.Code
	}
	assert.Equal(t, http.StatusUnauthorized, login())
	assert.Equal(t, http.StatusTooManyRequests, login())
}

func TestHealthReportsStorage(t *testing.T) {
	var down error
	srv := New(config.Config{Env: "test"}, Deps{
		Ping: func(context.Context) error { return down },
	})
	health := func() int {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, health())
	down = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, health())
}

func TestRequestSpanContinuesCallerTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
	core, logs := observer.New(zap.InfoLevel)
	srv := New(config.Config{Env: "test"}, Deps{Log: zap.New(core)})

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name())
	assert.Equal(t, traceID, spans[0].SpanContext().TraceID().String())

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, traceID, entries[0].ContextMap()["traceId"])
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestOnboardReissuesMerchantToken(t *testing.T) {
	h := newHarness(t)
	token := h.register("0411222333")

	rec := h.do(bearer(urlencodedReq("/api/merchant/onboard", url.Values{"storeName": {""}}), token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(bearer(urlencodedReq("/api/merchant/onboard", url.Values{"storeName": {"Lin's Kitchen"}, "address": {"1 King St"}}), token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "MERCHANT", out["user"].(map[string]any)["role"])
	merchantToken := out["token"].(string)

	rec = h.do(bearer(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), merchantToken))
	assert.Equal(t, "MERCHANT", decode(t, rec)["role"])

	rec = h.do(bearer(jsonReq(http.MethodPost, "/api/merchant/services", map[string]any{
		"name":      "Haircut",
		"timeSlots": []string{"Sat 10:00"},
	}), merchantToken))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	serviceID := decode(t, rec)["id"].(string)

	rec = h.do(bearer(httptest.NewRequest(http.MethodGet, "/api/merchant/me", nil), merchantToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["services"], 1)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/merchants?q=kitchen", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	dir := decode(t, rec)
	assert.EqualValues(t, 1, dir["total"])
	entry := dir["merchants"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 1, entry["serviceCount"])
	_, leaked := entry["dashboardKey"]
	assert.False(t, leaked)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/merchants/"+entry["id"].(string), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["services"], 1)

	rec = h.do(bearer(httptest.NewRequest(http.MethodDelete, "/api/merchant/services/"+serviceID, nil), merchantToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMerchantRoutesNeedAProfile(t *testing.T) {
	h := newHarness(t)
	token := h.register("0411222333")

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/merchant/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = h.do(bearer(httptest.NewRequest(http.MethodGet, "/api/merchant/me", nil), token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(bearer(jsonReq(http.MethodPost, "/api/merchant/services", map[string]any{"name": "x"}), token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookingAndAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repo.PutService(ctx, &domain.Service{ID: "cut", Name: "Haircut", Active: true, TimeSlots: []string{"Sat 10:00"}}))
	token := h.register("0411222333")

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/services", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["services"], 1)

	rec = h.do(formReq("/api/service-bookings", map[string]string{
		"serviceId": "cut", "customerName": "Lin", "phone": "0400000000", "preferredTime": "Sun 10:00",
	}, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := formReq("/api/service-bookings", map[string]string{
		"serviceId": "cut", "customerName": "Lin", "phone": "0400000000", "preferredTime": "Sat 10:00",
	}, "referenceImage", pngBytes)
	rec = h.do(bearer(req, token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bookingID := decode(t, rec)["bookingId"].(string)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/service-bookings/"+bookingID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode(t, rec)
	assert.Equal(t, "Haircut", b["serviceName"])
	assert.NotEmpty(t, b["referenceImageUrl"])

	rec = h.do(formReq("/api/service-requests", map[string]string{
		"serviceType": "cleaning", "description": "Bond clean", "userName": "Lin", "userPhone": "0411222333",
	}, "", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(bearer(httptest.NewRequest(http.MethodGet, "/api/me/account", nil), token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	acct := decode(t, rec)
	assert.Len(t, acct["serviceBookings"], 1, "owned through the session though the phone differs")
	assert.Len(t, acct["serviceRequests"], 1, "matched by phone")
	assert.Empty(t, acct["orders"])

	rec = h.do(bearer(httptest.NewRequest(http.MethodGet, "/api/me/service-requests", nil), token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["serviceRequests"], 1)
}
