package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var ErrNotFound = errors.New("shopify: order not found")

var tracer = otel.Tracer("groupbuy-backend/internal/infrastructure/shopify")

type Client struct {
	Domain      string
	AccessToken string
	APIVersion  string
	// BaseURL overrides https://<Domain>.
	BaseURL string
	HTTP    *http.Client
}

// Configured reports whether the store domain and token are set to
// something other than the placeholder defaults.
func (c *Client) Configured() bool {
	if c == nil {
		return false
	}
	d := strings.TrimSpace(c.Domain)
	return strings.TrimSpace(c.AccessToken) != "" && d != "" && d != "example.myshopify.com"
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
}

type LineItem struct {
	VariantID *int64 `json:"variant_id,omitempty"`
	ProductID *int64 `json:"product_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

type OrderInput struct {
	LineItems       []LineItem `json:"line_items"`
	ShippingAddress Address    `json:"shipping_address"`
	FinancialStatus string     `json:"financial_status"`
	Note            string     `json:"note"`
	Tags            []string   `json:"tags"`
}

type CreatedOrder struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateOrder posts a paid order and returns the new platform order.
func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (CreatedOrder, error) {
	ctx, span := tracer.Start(ctx, "shopify.CreateOrder", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.Int("shopify.line_items", len(in.LineItems)))

	var out struct {
		Order CreatedOrder `json:"order"`
	}
	status, err := c.do(ctx, http.MethodPost, "/orders.json", map[string]any{"order": in}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order failed")
		return CreatedOrder{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if out.Order.ID == 0 {
		err := errors.New("shopify: create order response missing id")
		span.SetStatus(codes.Error, err.Error())
		return CreatedOrder{}, err
	}
	return out.Order, nil
}

// DeleteOrder removes a platform order. A missing order yields ErrNotFound.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "shopify.DeleteOrder", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("shopify.order_id", id))

	status, err := c.do(ctx, http.MethodDelete, "/orders/"+id+".json", nil, nil)
	if status == http.StatusNotFound {
		return ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete order failed")
	}
	return err
}

func (c *Client) baseURL() string {
	if b := strings.TrimSpace(c.BaseURL); b != "" {
		return strings.TrimRight(b, "/")
	}
	return "https://" + strings.TrimSpace(c.Domain)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	version := c.APIVersion
	if version == "" {
		version = "2024-01"
	}
	u := c.baseURL() + "/admin/api/" + version + path
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("shopify %s %s error: %d %s", method, path, resp.StatusCode, errorText(raw))
	}
	if out == nil || len(raw) == 0 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.Unmarshal(raw, out)
}

func errorText(raw []byte) string {
	var e struct {
		Errors any `json:"errors"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Errors != nil {
		b, _ := json.Marshal(e.Errors)
		return string(b)
	}
	if len(raw) > 512 {
		raw = raw[:512]
	}
	return string(raw)
}

// ParseID returns the numeric form of a platform id, if it has one.
func ParseID(s string) (*int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return nil, false
	}
	return &n, true
}
