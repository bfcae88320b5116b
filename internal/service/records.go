package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"lfpanel/backend/internal/analytics"
	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
)

func (s *Service) ListSales(ctx context.Context, q domain.ReportQuery) ([]domain.Sale, error) {
	filter, err := s.ReportFilter(q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, recordQuery(filter))
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, strings.TrimSpace(id))
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	sale, err := s.buildSale(ctx, req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandEtsy, "sale.create", "sale", created.ID,
		fmt.Sprintf("order=%s profit_usd=%.2f", created.OrderNo, created.ProfitUSD))
	s.invalidate(ctx, domain.BrandEtsy)
	return created, nil
}

func (s *Service) UpdateSale(ctx context.Context, id string, req domain.SaleRequest) (*domain.Sale, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetSale(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	sale, err := s.buildSale(ctx, req)
	if err != nil {
		return nil, err
	}
	sale.ID = existing.ID

	updated, err := s.repo.UpdateSale(ctx, sale)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandEtsy, "sale.update", "sale", updated.ID,
		fmt.Sprintf("order=%s profit_usd=%.2f", updated.OrderNo, updated.ProfitUSD))
	s.invalidate(ctx, domain.BrandEtsy)
	return updated, nil
}

func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.BrandEtsy, "sale.delete", "sale", id, "")
	s.invalidate(ctx, domain.BrandEtsy)
	return nil
}

// buildSale validates a request and derives the stored profit. Caller
// supplied profit values are ignored. When product cost is omitted it is
// taken from the product's unit cost times quantity.
func (s *Service) buildSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	date, err := parseLocalDate(req.Date)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("%w: date %q", store.ErrInvalidRecord, req.Date)
	}
	storefront := strings.TrimSpace(req.Store)
	if storefront == "" || storefront == domain.AllStores {
		return domain.Sale{}, fmt.Errorf("%w: store is required", store.ErrInvalidRecord)
	}
	saleType := domain.SaleType(strings.ToUpper(defaultString(req.Type, string(domain.SaleTypeOrganic))))
	if !saleType.Valid() {
		return domain.Sale{}, fmt.Errorf("%w: type %q", store.ErrInvalidRecord, req.Type)
	}
	orderNo := strings.TrimSpace(req.OrderNo)
	if orderNo == "" {
		return domain.Sale{}, fmt.Errorf("%w: order number is required", store.ErrInvalidRecord)
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return domain.Sale{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidRecord)
	}
	for _, amount := range []*float64{req.BuyerPaid, req.FeesCredits, req.Tax, req.TotalSalePriceTL, req.ProductCost, req.ShippingCost} {
		if !validAmount(amount) {
			return domain.Sale{}, fmt.Errorf("%w: amounts must be non-negative numbers", store.ErrInvalidRecord)
		}
	}
	if req.DiscountRate != nil && (*req.DiscountRate < 0 || *req.DiscountRate > 100) {
		return domain.Sale{}, fmt.Errorf("%w: discount rate must be within 0-100", store.ErrInvalidRecord)
	}

	sale := domain.Sale{
		Date:             date,
		Store:            storefront,
		Type:             saleType,
		ProductID:        strings.TrimSpace(req.ProductID),
		Quantity:         quantity,
		OrderNo:          orderNo,
		BuyerPaid:        amountOrZero(req.BuyerPaid),
		FeesCredits:      amountOrZero(req.FeesCredits),
		Tax:              amountOrZero(req.Tax),
		TotalSalePriceTL: amountOrZero(req.TotalSalePriceTL),
		ProductCost:      amountOrZero(req.ProductCost),
		ShippingCost:     amountOrZero(req.ShippingCost),
		DiscountRate:     req.DiscountRate,
	}

	if sale.ProductID != "" {
		product, err := s.repo.GetProduct(ctx, sale.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Sale{}, fmt.Errorf("%w: unknown product %q", store.ErrInvalidRecord, sale.ProductID)
		}
		if err != nil {
			return domain.Sale{}, err
		}
		if req.ProductCost == nil {
			sale.ProductCost = math.Round(product.CostUSD*float64(quantity)*100) / 100
		}
	}

	profit := analytics.ComputeProfit(sale)
	sale.ProfitUSD = profit.USD
	sale.ProfitTL = profit.TL
	return sale, nil
}

func (s *Service) ListExpenses(ctx context.Context, q domain.ReportQuery) ([]domain.Expense, error) {
	filter, err := s.ReportFilter(q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, recordQuery(filter))
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseRequest) (*domain.Expense, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	expense, err := buildExpense(req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandEtsy, "expense.create", "expense", created.ID, created.Category)
	s.invalidate(ctx, domain.BrandEtsy)
	return created, nil
}

func (s *Service) UpdateExpense(ctx context.Context, id string, req domain.ExpenseRequest) (*domain.Expense, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetExpense(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	expense, err := buildExpense(req)
	if err != nil {
		return nil, err
	}
	expense.ID = existing.ID

	updated, err := s.repo.UpdateExpense(ctx, expense)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandEtsy, "expense.update", "expense", updated.ID, updated.Category)
	s.invalidate(ctx, domain.BrandEtsy)
	return updated, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.BrandEtsy, "expense.delete", "expense", id, "")
	s.invalidate(ctx, domain.BrandEtsy)
	return nil
}

func buildExpense(req domain.ExpenseRequest) (domain.Expense, error) {
	date, err := parseLocalDate(req.Date)
	if err != nil {
		return domain.Expense{}, fmt.Errorf("%w: date %q", store.ErrInvalidRecord, req.Date)
	}
	storefront := strings.TrimSpace(req.Store)
	if storefront == "" || storefront == domain.AllStores {
		return domain.Expense{}, fmt.Errorf("%w: store is required", store.ErrInvalidRecord)
	}
	if req.AmountTL == nil && req.AmountUSD == nil {
		return domain.Expense{}, fmt.Errorf("%w: amount_tl or amount_usd is required", store.ErrInvalidRecord)
	}
	if !validAmount(req.AmountTL) || !validAmount(req.AmountUSD) || !validAmount(req.ExchangeRate) {
		return domain.Expense{}, fmt.Errorf("%w: amounts must be non-negative numbers", store.ErrInvalidRecord)
	}

	return domain.Expense{
		Date:         date,
		Store:        storefront,
		Category:     strings.TrimSpace(req.Category),
		AmountTL:     req.AmountTL,
		AmountUSD:    req.AmountUSD,
		ExchangeRate: req.ExchangeRate,
		Description:  strings.TrimSpace(req.Description),
	}, nil
}

func (s *Service) ListPosTransactions(ctx context.Context, q domain.ReportQuery) ([]domain.PosTransaction, error) {
	filter, err := s.ReportFilter(q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPosTransactions(ctx, recordQuery(filter))
}

// CreatePosTransaction freezes the current commission rate on the record.
// Later rate edits do not change its net.
func (s *Service) CreatePosTransaction(ctx context.Context, req domain.PosTransactionRequest) (*domain.PosTransaction, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	date, err := parseLocalDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", store.ErrInvalidRecord, req.Date)
	}
	if req.Amount == nil || !validAmount(req.Amount) || *req.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrInvalidRecord)
	}
	storeID := strings.TrimSpace(req.StoreID)
	if _, err := s.repo.GetLamiaStore(ctx, storeID); err != nil {
		return nil, lookupError(err, "store", storeID)
	}
	rate, err := s.repo.GetCommissionRate(ctx, strings.TrimSpace(req.CommissionRateID))
	if err != nil {
		return nil, lookupError(err, "commission rate", req.CommissionRateID)
	}

	created, err := s.repo.CreatePosTransaction(ctx, domain.PosTransaction{
		Date:                   date,
		StoreID:                storeID,
		Amount:                 *req.Amount,
		CommissionRateID:       rate.ID,
		CommissionRateSnapshot: rate.Rate,
		Net:                    analytics.PosNet(*req.Amount, rate.Rate),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandLamiaferis, "pos.create", "pos_transaction", created.ID,
		fmt.Sprintf("amount=%.2f rate=%.2f net=%.2f", created.Amount, created.CommissionRateSnapshot, created.Net))
	s.invalidate(ctx, domain.BrandLamiaferis)
	return created, nil
}

func (s *Service) DeletePosTransaction(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeletePosTransaction(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.BrandLamiaferis, "pos.delete", "pos_transaction", id, "")
	s.invalidate(ctx, domain.BrandLamiaferis)
	return nil
}

func (s *Service) ListCashTransactions(ctx context.Context, q domain.ReportQuery) ([]domain.CashTransaction, error) {
	filter, err := s.ReportFilter(q)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCashTransactions(ctx, recordQuery(filter))
}

func (s *Service) CreateCashTransaction(ctx context.Context, req domain.CashTransactionRequest) (*domain.CashTransaction, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	date, err := parseLocalDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", store.ErrInvalidRecord, req.Date)
	}
	if req.Amount == nil || !validAmount(req.Amount) || *req.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrInvalidRecord)
	}
	storeID := strings.TrimSpace(req.StoreID)
	if _, err := s.repo.GetLamiaStore(ctx, storeID); err != nil {
		return nil, lookupError(err, "store", storeID)
	}

	created, err := s.repo.CreateCashTransaction(ctx, domain.CashTransaction{
		Date:    date,
		StoreID: storeID,
		Amount:  *req.Amount,
		Note:    strings.TrimSpace(req.Note),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.BrandLamiaferis, "cash.create", "cash_transaction", created.ID,
		fmt.Sprintf("amount=%.2f", created.Amount))
	s.invalidate(ctx, domain.BrandLamiaferis)
	return created, nil
}

func (s *Service) DeleteCashTransaction(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteCashTransaction(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.BrandLamiaferis, "cash.delete", "cash_transaction", id, "")
	s.invalidate(ctx, domain.BrandLamiaferis)
	return nil
}

// lookupError turns a missing reference into a validation failure of the
// record being written.
func lookupError(err error, what string, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: unknown %s %q", store.ErrInvalidRecord, what, id)
	}
	return err
}
