package service

import (
	"context"
	"fmt"
	"strings"

	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || !validAmount(req.CostUSD) {
		return nil, fmt.Errorf("%w: product needs a name and a non-negative cost", store.ErrInvalidRecord)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{Name: name, CostUSD: amountOrZero(req.CostUSD)})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandEtsy, "product.create", "product", created.ID, created.Name)
	return created, nil
}

func (s *Service) ListLamiaStores(ctx context.Context) ([]domain.LamiaStore, error) {
	return s.repo.ListLamiaStores(ctx)
}

func (s *Service) CreateLamiaStore(ctx context.Context, req domain.LamiaStoreCreateRequest) (*domain.LamiaStore, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: store name is required", store.ErrInvalidRecord)
	}

	created, err := s.repo.CreateLamiaStore(ctx, domain.LamiaStore{Name: name})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandLamiaferis, "store.create", "lamia_store", created.ID, created.Name)
	return created, nil
}

func (s *Service) ListCommissionRates(ctx context.Context) ([]domain.CommissionRate, error) {
	return s.repo.ListCommissionRates(ctx)
}

func (s *Service) CreateCommissionRate(ctx context.Context, req domain.CommissionRateRequest) (*domain.CommissionRate, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	rate, err := buildCommissionRate(req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateCommissionRate(ctx, rate)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandLamiaferis, "rate.create", "commission_rate", created.ID,
		fmt.Sprintf("%s=%.2f", created.Label, created.Rate))
	return created, nil
}

// UpdateCommissionRate affects transactions created afterwards. Stored
// snapshots, and so every cached report, stay valid.
func (s *Service) UpdateCommissionRate(ctx context.Context, id string, req domain.CommissionRateRequest) (*domain.CommissionRate, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	rate, err := buildCommissionRate(req)
	if err != nil {
		return nil, err
	}
	rate.ID = strings.TrimSpace(id)

	updated, err := s.repo.UpdateCommissionRate(ctx, rate)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandLamiaferis, "rate.update", "commission_rate", updated.ID,
		fmt.Sprintf("%s=%.2f", updated.Label, updated.Rate))
	return updated, nil
}

func buildCommissionRate(req domain.CommissionRateRequest) (domain.CommissionRate, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" || req.Rate == nil || !validAmount(req.Rate) || *req.Rate >= 100 {
		return domain.CommissionRate{}, fmt.Errorf("%w: rate needs a label and a percentage within 0-100", store.ErrInvalidRecord)
	}
	return domain.CommissionRate{Label: label, Rate: *req.Rate}, nil
}
