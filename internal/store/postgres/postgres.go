package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
	"lfpanel/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the idempotent schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// rangeArgs renders a RecordQuery as the ($1 store, $2 from, $3 to)
// arguments shared by the record stream queries. NULL disables a bound.
func rangeArgs(q store.RecordQuery) []any {
	storeArg := any(nil)
	if q.Store != "" && q.Store != domain.AllStores {
		storeArg = q.Store
	}
	return []any{storeArg, nullTime(q.From), nullTime(q.To)}
}

const saleColumns = `
	s.id, s.sold_at, s.store, s.sale_type, COALESCE(s.product_id, ''), COALESCE(p.name, ''),
	s.quantity, s.order_no, s.buyer_paid, s.fees_credits, s.tax, s.total_sale_price_tl,
	s.product_cost, s.shipping_cost, s.profit_usd, s.profit_tl, s.discount_rate,
	s.created_at, s.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSale(row scanner) (domain.Sale, error) {
	var sale domain.Sale
	var saleType string
	var discount sql.NullInt64
	err := row.Scan(
		&sale.ID, &sale.Date, &sale.Store, &saleType, &sale.ProductID, &sale.ProductName,
		&sale.Quantity, &sale.OrderNo, &sale.BuyerPaid, &sale.FeesCredits, &sale.Tax, &sale.TotalSalePriceTL,
		&sale.ProductCost, &sale.ShippingCost, &sale.ProfitUSD, &sale.ProfitTL, &discount,
		&sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		return sale, err
	}
	sale.Type = domain.SaleType(saleType)
	if discount.Valid {
		rate := int(discount.Int64)
		sale.DiscountRate = &rate
	}
	sale.Date = sale.Date.UTC()
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, q store.RecordQuery) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		WHERE ($1::text IS NULL OR s.store = $1)
			AND ($2::timestamptz IS NULL OR s.sold_at >= $2)
			AND ($3::timestamptz IS NULL OR s.sold_at <= $3)
		ORDER BY s.sold_at ASC, s.id ASC
	`, rangeArgs(q)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		WHERE s.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if strings.TrimSpace(sale.OrderNo) == "" || sale.Quantity < 1 {
		return nil, store.ErrInvalidRecord
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales (
			id, sold_at, store, sale_type, product_id, quantity, order_no,
			buyer_paid, fees_credits, tax, total_sale_price_tl, product_cost, shipping_cost,
			profit_usd, profit_tl, discount_rate, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
	`, sale.ID, sale.Date, sale.Store, string(sale.Type), nullIfEmpty(sale.ProductID), sale.Quantity, strings.TrimSpace(sale.OrderNo),
		sale.BuyerPaid, sale.FeesCredits, sale.Tax, sale.TotalSalePriceTL, sale.ProductCost, sale.ShippingCost,
		sale.ProfitUSD, sale.ProfitTL, nullInt(sale.DiscountRate))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateOrderNo
		}
		return nil, err
	}
	return s.GetSale(ctx, sale.ID)
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if strings.TrimSpace(sale.OrderNo) == "" || sale.Quantity < 1 {
		return nil, store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET sold_at = $2, store = $3, sale_type = $4, product_id = $5, quantity = $6, order_no = $7,
			buyer_paid = $8, fees_credits = $9, tax = $10, total_sale_price_tl = $11,
			product_cost = $12, shipping_cost = $13, profit_usd = $14, profit_tl = $15,
			discount_rate = $16, updated_at = now()
		WHERE id = $1
	`, sale.ID, sale.Date, sale.Store, string(sale.Type), nullIfEmpty(sale.ProductID), sale.Quantity, strings.TrimSpace(sale.OrderNo),
		sale.BuyerPaid, sale.FeesCredits, sale.Tax, sale.TotalSalePriceTL, sale.ProductCost, sale.ShippingCost,
		sale.ProfitUSD, sale.ProfitTL, nullInt(sale.DiscountRate))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateOrderNo
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetSale(ctx, sale.ID)
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "sales", id)
}

const expenseColumns = `
	id, spent_at, store, category, amount_tl, amount_usd, exchange_rate, description, created_at, updated_at`

func scanExpense(row scanner) (domain.Expense, error) {
	var e domain.Expense
	var amountTL, amountUSD, rate sql.NullFloat64
	err := row.Scan(&e.ID, &e.Date, &e.Store, &e.Category, &amountTL, &amountUSD, &rate, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	e.AmountTL = floatPtr(amountTL)
	e.AmountUSD = floatPtr(amountUSD)
	e.ExchangeRate = floatPtr(rate)
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context, q store.RecordQuery) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE ($1::text IS NULL OR store = $1)
			AND ($2::timestamptz IS NULL OR spent_at >= $2)
			AND ($3::timestamptz IS NULL OR spent_at <= $3)
		ORDER BY spent_at ASC, id ASC
	`, rangeArgs(q)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	e, err := scanExpense(s.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.AmountTL == nil && expense.AmountUSD == nil {
		return nil, store.ErrInvalidRecord
	}
	if expense.ID == "" {
		expense.ID = xid.New("expense")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, spent_at, store, category, amount_tl, amount_usd, exchange_rate, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
	`, expense.ID, expense.Date, expense.Store, expense.Category,
		nullFloat(expense.AmountTL), nullFloat(expense.AmountUSD), nullFloat(expense.ExchangeRate), expense.Description)
	if err != nil {
		return nil, err
	}
	return s.GetExpense(ctx, expense.ID)
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.AmountTL == nil && expense.AmountUSD == nil {
		return nil, store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET spent_at = $2, store = $3, category = $4, amount_tl = $5, amount_usd = $6,
			exchange_rate = $7, description = $8, updated_at = now()
		WHERE id = $1
	`, expense.ID, expense.Date, expense.Store, expense.Category,
		nullFloat(expense.AmountTL), nullFloat(expense.AmountUSD), nullFloat(expense.ExchangeRate), expense.Description)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetExpense(ctx, expense.ID)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "expenses", id)
}

func (s *Store) ListPosTransactions(ctx context.Context, q store.RecordQuery) ([]domain.PosTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.settled_at, t.store_id, COALESCE(ls.name, ''), t.amount, t.commission_rate_id,
			COALESCE(cr.label, ''), t.commission_rate_snapshot, t.net, t.created_at
		FROM pos_transactions t
		LEFT JOIN lamia_stores ls ON ls.id = t.store_id
		LEFT JOIN commission_rates cr ON cr.id = t.commission_rate_id
		WHERE ($1::text IS NULL OR t.store_id = $1)
			AND ($2::timestamptz IS NULL OR t.settled_at >= $2)
			AND ($3::timestamptz IS NULL OR t.settled_at <= $3)
		ORDER BY t.settled_at ASC, t.id ASC
	`, rangeArgs(q)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.PosTransaction, 0, 128)
	for rows.Next() {
		var tx domain.PosTransaction
		if err := rows.Scan(&tx.ID, &tx.Date, &tx.StoreID, &tx.StoreName, &tx.Amount, &tx.CommissionRateID,
			&tx.CommissionLabel, &tx.CommissionRateSnapshot, &tx.Net, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Date = tx.Date.UTC()
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) CreatePosTransaction(ctx context.Context, tx domain.PosTransaction) (*domain.PosTransaction, error) {
	if tx.ID == "" {
		tx.ID = xid.New("pos")
	}
	tx.CreatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO pos_transactions (id, settled_at, store_id, amount, commission_rate_id, commission_rate_snapshot, net, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING store_id, commission_rate_id
		)
		SELECT COALESCE(ls.name, ''), COALESCE(cr.label, '')
		FROM inserted i
		LEFT JOIN lamia_stores ls ON ls.id = i.store_id
		LEFT JOIN commission_rates cr ON cr.id = i.commission_rate_id
	`, tx.ID, tx.Date, tx.StoreID, tx.Amount, tx.CommissionRateID, tx.CommissionRateSnapshot, tx.Net, tx.CreatedAt).
		Scan(&tx.StoreName, &tx.CommissionLabel)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (s *Store) DeletePosTransaction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "pos_transactions", id)
}

func (s *Store) ListCashTransactions(ctx context.Context, q store.RecordQuery) ([]domain.CashTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.received_at, t.store_id, COALESCE(ls.name, ''), t.amount, t.note, t.created_at
		FROM cash_transactions t
		LEFT JOIN lamia_stores ls ON ls.id = t.store_id
		WHERE ($1::text IS NULL OR t.store_id = $1)
			AND ($2::timestamptz IS NULL OR t.received_at >= $2)
			AND ($3::timestamptz IS NULL OR t.received_at <= $3)
		ORDER BY t.received_at ASC, t.id ASC
	`, rangeArgs(q)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.CashTransaction, 0, 64)
	for rows.Next() {
		var tx domain.CashTransaction
		if err := rows.Scan(&tx.ID, &tx.Date, &tx.StoreID, &tx.StoreName, &tx.Amount, &tx.Note, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Date = tx.Date.UTC()
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) CreateCashTransaction(ctx context.Context, tx domain.CashTransaction) (*domain.CashTransaction, error) {
	if tx.ID == "" {
		tx.ID = xid.New("cash")
	}
	tx.CreatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO cash_transactions (id, received_at, store_id, amount, note, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING store_id
		)
		SELECT COALESCE(ls.name, '')
		FROM inserted i
		LEFT JOIN lamia_stores ls ON ls.id = i.store_id
	`, tx.ID, tx.Date, tx.StoreID, tx.Amount, tx.Note, tx.CreatedAt).Scan(&tx.StoreName)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (s *Store) DeleteCashTransaction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "cash_transactions", id)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cost_usd, created_at
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CostUSD, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cost_usd, created_at FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.CostUSD, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.CostUSD < 0 {
		return nil, store.ErrInvalidRecord
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, cost_usd, created_at) VALUES ($1,$2,$3,$4)
	`, product.ID, product.Name, product.CostUSD, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) ListLamiaStores(ctx context.Context) ([]domain.LamiaStore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM lamia_stores ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.LamiaStore, 0, 8)
	for rows.Next() {
		var ls domain.LamiaStore
		if err := rows.Scan(&ls.ID, &ls.Name, &ls.CreatedAt); err != nil {
			return nil, err
		}
		ls.CreatedAt = ls.CreatedAt.UTC()
		stores = append(stores, ls)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *Store) GetLamiaStore(ctx context.Context, id string) (*domain.LamiaStore, error) {
	var ls domain.LamiaStore
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM lamia_stores WHERE id = $1`, id).
		Scan(&ls.ID, &ls.Name, &ls.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	ls.CreatedAt = ls.CreatedAt.UTC()
	return &ls, nil
}

func (s *Store) CreateLamiaStore(ctx context.Context, ls domain.LamiaStore) (*domain.LamiaStore, error) {
	if strings.TrimSpace(ls.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	if ls.ID == "" {
		ls.ID = xid.New("store")
	}
	ls.CreatedAt = time.Now().UTC()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO lamia_stores (id, name, created_at) VALUES ($1,$2,$3)
	`, ls.ID, ls.Name, ls.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}
	created := ls
	return &created, nil
}

func (s *Store) ListCommissionRates(ctx context.Context) ([]domain.CommissionRate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, rate, created_at FROM commission_rates ORDER BY rate, label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make([]domain.CommissionRate, 0, 8)
	for rows.Next() {
		var cr domain.CommissionRate
		if err := rows.Scan(&cr.ID, &cr.Label, &cr.Rate, &cr.CreatedAt); err != nil {
			return nil, err
		}
		cr.CreatedAt = cr.CreatedAt.UTC()
		rates = append(rates, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}

func (s *Store) GetCommissionRate(ctx context.Context, id string) (*domain.CommissionRate, error) {
	var cr domain.CommissionRate
	err := s.db.QueryRowContext(ctx, `SELECT id, label, rate, created_at FROM commission_rates WHERE id = $1`, id).
		Scan(&cr.ID, &cr.Label, &cr.Rate, &cr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	cr.CreatedAt = cr.CreatedAt.UTC()
	return &cr, nil
}

func (s *Store) CreateCommissionRate(ctx context.Context, rate domain.CommissionRate) (*domain.CommissionRate, error) {
	if strings.TrimSpace(rate.Label) == "" || rate.Rate < 0 {
		return nil, store.ErrInvalidRecord
	}
	if rate.ID == "" {
		rate.ID = xid.New("rate")
	}
	rate.CreatedAt = time.Now().UTC()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO commission_rates (id, label, rate, created_at) VALUES ($1,$2,$3,$4)
	`, rate.ID, rate.Label, rate.Rate, rate.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}
	created := rate
	return &created, nil
}

func (s *Store) UpdateCommissionRate(ctx context.Context, rate domain.CommissionRate) (*domain.CommissionRate, error) {
	if strings.TrimSpace(rate.Label) == "" || rate.Rate < 0 {
		return nil, store.ErrInvalidRecord
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE commission_rates
		SET label = $2, rate = $3
		WHERE id = $1
		RETURNING created_at
	`, rate.ID, rate.Label, rate.Rate).Scan(&rate.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	rate.CreatedAt = rate.CreatedAt.UTC()
	return &rate, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, brand, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.Brand, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, brand string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, brand, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR brand = $1)
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, brand, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.Brand, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if user.Role == "" {
		user.Role = "viewer"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRecord
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// deleteByID is only called with table names from this file.
func (s *Store) deleteByID(ctx context.Context, table string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}

func nullFloat(val *float64) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullInt(val *int) any {
	if val == nil {
		return nil
	}
	return *val
}

func floatPtr(val sql.NullFloat64) *float64 {
	if !val.Valid {
		return nil
	}
	v := val.Float64
	return &v
}
