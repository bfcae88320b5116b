package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("LFPANEL_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set LFPANEL_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestSaleOrderNoIsUnique(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	orderNo := fmt.Sprintf("IT-%d", stamp)
	storefront := fmt.Sprintf("etsy-it-%d", stamp)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE store = $1`, storefront)
	})

	discount := 15
	sale := domain.Sale{
		Date: time.Now().UTC().Truncate(time.Second), Store: storefront, Type: domain.SaleTypeSale,
		Quantity: 1, OrderNo: orderNo, BuyerPaid: 40, TotalSalePriceTL: 1400, DiscountRate: &discount,
	}
	created, err := s.CreateSale(ctx, sale)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if created.DiscountRate == nil || *created.DiscountRate != 15 {
		t.Fatalf("expected discount rate to round-trip, got %+v", created.DiscountRate)
	}

	if _, err := s.CreateSale(ctx, sale); !errors.Is(err, store.ErrDuplicateOrderNo) {
		t.Fatalf("expected duplicate order error, got %v", err)
	}

	sales, err := s.ListSales(ctx, store.RecordQuery{Store: storefront})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale, got %d", len(sales))
	}
}

func TestPosTransactionKeepsSnapshot(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	ls, err := s.CreateLamiaStore(ctx, domain.LamiaStore{Name: fmt.Sprintf("IT Store %d", stamp)})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	rate, err := s.CreateCommissionRate(ctx, domain.CommissionRate{Label: "IT rate", Rate: 3})
	if err != nil {
		t.Fatalf("create rate: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM pos_transactions WHERE store_id = $1`, ls.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM lamia_stores WHERE id = $1`, ls.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM commission_rates WHERE id = $1`, rate.ID)
	})

	created, err := s.CreatePosTransaction(ctx, domain.PosTransaction{
		Date: time.Now().UTC(), StoreID: ls.ID, CommissionRateID: rate.ID,
		Amount: 1030, CommissionRateSnapshot: 3, Net: 1000,
	})
	if err != nil {
		t.Fatalf("create pos: %v", err)
	}
	if created.StoreName != ls.Name || created.CommissionLabel != "IT rate" {
		t.Fatalf("expected resolved lookups, got %+v", created)
	}

	rate.Rate = 9
	if _, err := s.UpdateCommissionRate(ctx, *rate); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	txs, err := s.ListPosTransactions(ctx, store.RecordQuery{Store: ls.ID})
	if err != nil {
		t.Fatalf("list pos: %v", err)
	}
	if len(txs) != 1 || txs[0].CommissionRateSnapshot != 3 {
		t.Fatalf("expected frozen snapshot, got %+v", txs)
	}
}
