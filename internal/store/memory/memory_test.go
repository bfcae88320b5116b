package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
)

func TestCreateSaleRejectsDuplicateOrderNo(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	sale := domain.Sale{Date: time.Now().UTC(), Store: "etsy", ProductID: "prod-moon-lamp", Quantity: 1, OrderNo: "3301"}

	created, err := s.CreateSale(ctx, sale)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if created.ProductName != "Moon Lamp" {
		t.Fatalf("expected resolved product name, got %q", created.ProductName)
	}
	if _, err := s.CreateSale(ctx, sale); !errors.Is(err, store.ErrDuplicateOrderNo) {
		t.Fatalf("expected duplicate order error, got %v", err)
	}

	other := sale
	other.OrderNo = "3302"
	second, err := s.CreateSale(ctx, other)
	if err != nil {
		t.Fatalf("create second sale: %v", err)
	}
	second.OrderNo = "3301"
	if _, err := s.UpdateSale(ctx, *second); !errors.Is(err, store.ErrDuplicateOrderNo) {
		t.Fatalf("expected duplicate order error on update, got %v", err)
	}
}

func TestListSalesFiltersAndSorts(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	for i, storefront := range []string{"etsy", "etsy", "etsy-second"} {
		_, err := s.CreateSale(ctx, domain.Sale{
			Date:     base.Add(-time.Duration(i) * 24 * time.Hour),
			Store:    storefront,
			Quantity: 1,
			OrderNo:  string(rune('A' + i)),
		})
		if err != nil {
			t.Fatalf("create sale %d: %v", i, err)
		}
	}

	sales, err := s.ListSales(ctx, store.RecordQuery{Store: "etsy"})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 etsy sales, got %d", len(sales))
	}
	if !sales[0].Date.Before(sales[1].Date) {
		t.Fatalf("expected ascending dates")
	}

	all, _ := s.ListSales(ctx, store.RecordQuery{Store: domain.AllStores, From: base.Add(-36 * time.Hour)})
	if len(all) != 2 {
		t.Fatalf("expected date filter to keep 2 sales, got %d", len(all))
	}
}

func TestPosTransactionResolvesLookups(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CreatePosTransaction(ctx, domain.PosTransaction{StoreID: "missing", CommissionRateID: "rate-3"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown store, got %v", err)
	}
	created, err := s.CreatePosTransaction(ctx, domain.PosTransaction{
		Date: time.Now().UTC(), StoreID: "store-kadikoy", CommissionRateID: "rate-3",
		Amount: 1000, CommissionRateSnapshot: 4.99, Net: 952.47,
	})
	if err != nil {
		t.Fatalf("create pos: %v", err)
	}
	if created.StoreName != "Kadıköy" || created.CommissionLabel != "3 Taksit" {
		t.Fatalf("unexpected lookups %+v", created)
	}

	if _, err := s.UpdateCommissionRate(ctx, domain.CommissionRate{ID: "rate-3", Label: "3 Taksit", Rate: 9}); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	txs, _ := s.ListPosTransactions(ctx, store.RecordQuery{})
	if len(txs) != 1 || txs[0].CommissionRateSnapshot != 4.99 {
		t.Fatalf("expected frozen snapshot, got %+v", txs)
	}
}

func TestExpenseRequiresAnAmount(t *testing.T) {
	s := New()
	if _, err := s.CreateExpense(context.Background(), domain.Expense{Category: "Ofis"}); !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got %v", err)
	}
}
