package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
)

type MappingService struct {
	Repo MappingRepo
	Log  *zap.Logger
}

// Translate replaces item titles with their configured Chinese names.
// Every returned item carries originalTitle. A failed lookup returns the
// input unchanged.
func (s *MappingService) Translate(ctx context.Context, items []domain.PackageItem) []domain.PackageItem {
	if s == nil || len(items) == 0 {
		return items
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ShopifyProductID != "" {
			ids = append(ids, it.ShopifyProductID)
		}
	}
	var mapped map[string]domain.ProductNameMapping
	if len(ids) > 0 {
		m, err := s.Repo.MappingsByProductIDs(ctx, ids)
		if err != nil {
			logger(s.Log).Warn("product name lookup failed", zap.Error(err))
			return items
		}
		mapped = m
	}
	out := make([]domain.PackageItem, len(items))
	for i, it := range items {
		if it.OriginalTitle == "" {
			it.OriginalTitle = it.Title
		}
		if m, ok := mapped[it.ShopifyProductID]; ok && m.ChineseName != "" {
			it.Title = m.ChineseName
		}
		out[i] = it
	}
	return out
}

type MappingInput struct {
	ShopifyProductID string  `json:"shopifyProductId"`
	ShopifyVariantID *string `json:"shopifyVariantId"`
	EnglishName      string  `json:"englishName"`
	ChineseName      string  `json:"chineseName"`
}

func (in MappingInput) validate() error {
	if strings.TrimSpace(in.ShopifyProductID) == "" || strings.TrimSpace(in.EnglishName) == "" || strings.TrimSpace(in.ChineseName) == "" {
		return ErrBadRequest("shopifyProductId, englishName and chineseName are required")
	}
	return nil
}

func (s *MappingService) List(ctx context.Context) ([]domain.ProductNameMapping, error) {
	return s.Repo.ListMappings(ctx)
}

func (s *MappingService) Get(ctx context.Context, id string) (*domain.ProductNameMapping, error) {
	m, ok, err := s.Repo.GetMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound("mapping")
	}
	return m, nil
}

// Upsert creates or replaces the mapping keyed by shopifyProductId.
func (s *MappingService) Upsert(ctx context.Context, in MappingInput) (*domain.ProductNameMapping, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return s.Repo.UpsertMapping(ctx, &domain.ProductNameMapping{
		ID:               newID(),
		ShopifyProductID: strings.TrimSpace(in.ShopifyProductID),
		ShopifyVariantID: in.ShopifyVariantID,
		EnglishName:      strings.TrimSpace(in.EnglishName),
		ChineseName:      strings.TrimSpace(in.ChineseName),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

type MappingPatch struct {
	ShopifyVariantID *string `json:"shopifyVariantId"`
	EnglishName      *string `json:"englishName"`
	ChineseName      *string `json:"chineseName"`
}

func (s *MappingService) Update(ctx context.Context, id string, p MappingPatch) (*domain.ProductNameMapping, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ShopifyVariantID != nil {
		m.ShopifyVariantID = strPtr(strings.TrimSpace(*p.ShopifyVariantID))
	}
	if p.EnglishName != nil {
		m.EnglishName = strings.TrimSpace(*p.EnglishName)
	}
	if p.ChineseName != nil {
		m.ChineseName = strings.TrimSpace(*p.ChineseName)
	}
	if m.EnglishName == "" || m.ChineseName == "" {
		return nil, ErrBadRequest("englishName and chineseName must not be empty")
	}
	m.UpdatedAt = time.Now().UTC()
	if err := s.Repo.UpdateMapping(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MappingService) Delete(ctx context.Context, id string) error {
	ok, err := s.Repo.DeleteMapping(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound("mapping")
	}
	return nil
}

// Batch upserts every valid entry and reports how many were skipped.
func (s *MappingService) Batch(ctx context.Context, in []MappingInput) ([]domain.ProductNameMapping, int, error) {
	out := make([]domain.ProductNameMapping, 0, len(in))
	skipped := 0
	for _, m := range in {
		if m.validate() != nil {
			skipped++
			continue
		}
		saved, err := s.Upsert(ctx, m)
		if err != nil {
			return out, skipped, err
		}
		out = append(out, *saved)
	}
	return out, skipped, nil
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
