package usecase

import (
	"context"
	"errors"
	"sync"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/shopify"
)

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
	return shopify.CreatedOrder{ID: 4200 + int64(len(f.created)), Name: "#1001"}, nil
}

func (f *fakePlatform) DeleteOrder(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type recordedEvents struct {
	mu  sync.Mutex
	evs []domain.Event
}

func (r *recordedEvents) Publish(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.Type)
	}
	return out
}

type memAssets struct {
	puts []domain.Upload
}

func (m *memAssets) Put(_ context.Context, up domain.Upload) (string, error) {
	m.puts = append(m.puts, up)
	return "/uploads/" + up.Filename, nil
}

func (m *memAssets) Resolve(_ context.Context, ref string) (string, error) {
	return "https://cdn.test" + ref, nil
}

// brokenMappings fails every lookup.
type brokenMappings struct {
	MappingRepo
}

func (brokenMappings) MappingsByProductIDs(context.Context, []string) (map[string]domain.ProductNameMapping, error) {
	return nil, errors.New("db down")
}
