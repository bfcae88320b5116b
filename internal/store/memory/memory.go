package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
	"lfpanel/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	sales           map[string]domain.Sale
	expenses        map[string]domain.Expense
	posTx           map[string]domain.PosTransaction
	cashTx          map[string]domain.CashTransaction
	products        map[string]domain.Product
	lamiaStores     map[string]domain.LamiaStore
	commissionRates map[string]domain.CommissionRate
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the in-memory accounts for dev/demo mode. Passwords come
// from SEED_ADMIN_PASSWORD and SEED_VIEWER_PASSWORD, falling back to dev
// defaults with a warning. The postgres store never uses these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	viewerPwd := envOr("SEED_VIEWER_PASSWORD", "viewer123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_VIEWER_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").Msg("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_VIEWER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"viewer", viewerPwd, "viewer"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		sales:           make(map[string]domain.Sale),
		expenses:        make(map[string]domain.Expense),
		posTx:           make(map[string]domain.PosTransaction),
		cashTx:          make(map[string]domain.CashTransaction),
		products:        make(map[string]domain.Product),
		lamiaStores:     make(map[string]domain.LamiaStore),
		commissionRates: make(map[string]domain.CommissionRate),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store with demo lookups and users. No transactional
// records are seeded.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, p := range []domain.Product{
		{ID: "prod-moon-lamp", Name: "Moon Lamp", CostUSD: 14.5},
		{ID: "prod-name-necklace", Name: "Name Necklace", CostUSD: 6.2},
		{ID: "prod-wall-art", Name: "Metal Wall Art", CostUSD: 21},
	} {
		p.CreatedAt = now
		s.products[p.ID] = p
	}
	for _, ls := range []domain.LamiaStore{
		{ID: "store-kadikoy", Name: "Kadıköy"},
		{ID: "store-besiktas", Name: "Beşiktaş"},
	} {
		ls.CreatedAt = now
		s.lamiaStores[ls.ID] = ls
	}
	for _, cr := range []domain.CommissionRate{
		{ID: "rate-single", Label: "Tek Çekim", Rate: 2.49},
		{ID: "rate-3", Label: "3 Taksit", Rate: 4.99},
		{ID: "rate-6", Label: "6 Taksit", Rate: 7.49},
	} {
		cr.CreatedAt = now
		s.commissionRates[cr.ID] = cr
	}
	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) ListSales(_ context.Context, q store.RecordQuery) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !q.Matches(sale.Store, sale.Date) {
			continue
		}
		result = append(result, s.resolveSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		return compareByDate(a.Date, a.ID, b.Date, b.ID)
	})
	return result, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	resolved := s.resolveSale(sale)
	return &resolved, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(sale.OrderNo) == "" || sale.Quantity < 1 {
		return nil, store.ErrInvalidRecord
	}
	if s.orderNoTaken(sale.OrderNo, "") {
		return nil, store.ErrDuplicateOrderNo
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	now := time.Now().UTC()
	sale.CreatedAt = now
	sale.UpdatedAt = now
	sale.ProductName = ""
	s.sales[sale.ID] = sale

	created := s.resolveSale(sale)
	return &created, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.sales[sale.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(sale.OrderNo) == "" || sale.Quantity < 1 {
		return nil, store.ErrInvalidRecord
	}
	if s.orderNoTaken(sale.OrderNo, sale.ID) {
		return nil, store.ErrDuplicateOrderNo
	}
	sale.CreatedAt = existing.CreatedAt
	sale.UpdatedAt = time.Now().UTC()
	sale.ProductName = ""
	s.sales[sale.ID] = sale

	updated := s.resolveSale(sale)
	return &updated, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, q store.RecordQuery) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		if !q.Matches(expense.Store, expense.Date) {
			continue
		}
		result = append(result, cloneExpense(expense))
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		return compareByDate(a.Date, a.ID, b.Date, b.ID)
	})
	return result, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, exists := s.expenses[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyExpense := cloneExpense(expense)
	return &copyExpense, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.AmountTL == nil && expense.AmountUSD == nil {
		return nil, store.ErrInvalidRecord
	}
	if expense.ID == "" {
		expense.ID = xid.New("expense")
	}
	now := time.Now().UTC()
	expense.CreatedAt = now
	expense.UpdatedAt = now
	expense = cloneExpense(expense)
	s.expenses[expense.ID] = expense

	created := cloneExpense(expense)
	return &created, nil
}

func (s *Store) UpdateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.expenses[expense.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if expense.AmountTL == nil && expense.AmountUSD == nil {
		return nil, store.ErrInvalidRecord
	}
	expense.CreatedAt = existing.CreatedAt
	expense.UpdatedAt = time.Now().UTC()
	expense = cloneExpense(expense)
	s.expenses[expense.ID] = expense

	updated := cloneExpense(expense)
	return &updated, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListPosTransactions(_ context.Context, q store.RecordQuery) ([]domain.PosTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PosTransaction, 0, len(s.posTx))
	for _, tx := range s.posTx {
		if !q.Matches(tx.StoreID, tx.Date) {
			continue
		}
		result = append(result, s.resolvePos(tx))
	}
	slices.SortFunc(result, func(a, b domain.PosTransaction) int {
		return compareByDate(a.Date, a.ID, b.Date, b.ID)
	})
	return result, nil
}

func (s *Store) CreatePosTransaction(_ context.Context, tx domain.PosTransaction) (*domain.PosTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lamiaStores[tx.StoreID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.commissionRates[tx.CommissionRateID]; !exists {
		return nil, store.ErrNotFound
	}
	if tx.ID == "" {
		tx.ID = xid.New("pos")
	}
	tx.CreatedAt = time.Now().UTC()
	tx.StoreName = ""
	tx.CommissionLabel = ""
	s.posTx[tx.ID] = tx

	created := s.resolvePos(tx)
	return &created, nil
}

func (s *Store) DeletePosTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posTx[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.posTx, id)
	return nil
}

func (s *Store) ListCashTransactions(_ context.Context, q store.RecordQuery) ([]domain.CashTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CashTransaction, 0, len(s.cashTx))
	for _, tx := range s.cashTx {
		if !q.Matches(tx.StoreID, tx.Date) {
			continue
		}
		tx.StoreName = s.lamiaStores[tx.StoreID].Name
		result = append(result, tx)
	}
	slices.SortFunc(result, func(a, b domain.CashTransaction) int {
		return compareByDate(a.Date, a.ID, b.Date, b.ID)
	})
	return result, nil
}

func (s *Store) CreateCashTransaction(_ context.Context, tx domain.CashTransaction) (*domain.CashTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lamiaStore, exists := s.lamiaStores[tx.StoreID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if tx.ID == "" {
		tx.ID = xid.New("cash")
	}
	tx.CreatedAt = time.Now().UTC()
	tx.StoreName = ""
	s.cashTx[tx.ID] = tx

	created := tx
	created.StoreName = lamiaStore.Name
	return &created, nil
}

func (s *Store) DeleteCashTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cashTx[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.cashTx, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(product.Name) == "" || product.CostUSD < 0 {
		return nil, store.ErrInvalidRecord
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	product.CreatedAt = time.Now().UTC()
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) ListLamiaStores(_ context.Context) ([]domain.LamiaStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := make([]domain.LamiaStore, 0, len(s.lamiaStores))
	for _, ls := range s.lamiaStores {
		stores = append(stores, ls)
	}
	slices.SortFunc(stores, func(a, b domain.LamiaStore) int {
		return cmpString(a.Name, b.Name)
	})
	return stores, nil
}

func (s *Store) GetLamiaStore(_ context.Context, id string) (*domain.LamiaStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ls, exists := s.lamiaStores[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &ls, nil
}

func (s *Store) CreateLamiaStore(_ context.Context, ls domain.LamiaStore) (*domain.LamiaStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(ls.Name) == "" {
		return nil, store.ErrInvalidRecord
	}
	if ls.ID == "" {
		ls.ID = xid.New("store")
	}
	ls.CreatedAt = time.Now().UTC()
	s.lamiaStores[ls.ID] = ls
	created := ls
	return &created, nil
}

func (s *Store) ListCommissionRates(_ context.Context) ([]domain.CommissionRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rates := make([]domain.CommissionRate, 0, len(s.commissionRates))
	for _, cr := range s.commissionRates {
		rates = append(rates, cr)
	}
	slices.SortFunc(rates, func(a, b domain.CommissionRate) int {
		if a.Rate == b.Rate {
			return cmpString(a.Label, b.Label)
		}
		if a.Rate < b.Rate {
			return -1
		}
		return 1
	})
	return rates, nil
}

func (s *Store) GetCommissionRate(_ context.Context, id string) (*domain.CommissionRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cr, exists := s.commissionRates[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &cr, nil
}

func (s *Store) CreateCommissionRate(_ context.Context, rate domain.CommissionRate) (*domain.CommissionRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(rate.Label) == "" || rate.Rate < 0 {
		return nil, store.ErrInvalidRecord
	}
	if rate.ID == "" {
		rate.ID = xid.New("rate")
	}
	rate.CreatedAt = time.Now().UTC()
	s.commissionRates[rate.ID] = rate
	created := rate
	return &created, nil
}

// UpdateCommissionRate changes a rate for future transactions only; stored
// POS snapshots are left alone.
func (s *Store) UpdateCommissionRate(_ context.Context, rate domain.CommissionRate) (*domain.CommissionRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.commissionRates[rate.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(rate.Label) == "" || rate.Rate < 0 {
		return nil, store.ErrInvalidRecord
	}
	rate.CreatedAt = existing.CreatedAt
	s.commissionRates[rate.ID] = rate
	updated := rate
	return &updated, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, brand string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if brand != "" && entry.Brand != brand {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		return -compareByDate(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidRecord
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "viewer"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// orderNoTaken must be called with s.mu held.
func (s *Store) orderNoTaken(orderNo string, exceptID string) bool {
	orderNo = strings.TrimSpace(orderNo)
	for id, sale := range s.sales {
		if id != exceptID && strings.TrimSpace(sale.OrderNo) == orderNo {
			return true
		}
	}
	return false
}

func (s *Store) resolveSale(sale domain.Sale) domain.Sale {
	if product, ok := s.products[sale.ProductID]; ok {
		sale.ProductName = product.Name
	}
	if sale.DiscountRate != nil {
		rate := *sale.DiscountRate
		sale.DiscountRate = &rate
	}
	return sale
}

func (s *Store) resolvePos(tx domain.PosTransaction) domain.PosTransaction {
	tx.StoreName = s.lamiaStores[tx.StoreID].Name
	tx.CommissionLabel = s.commissionRates[tx.CommissionRateID].Label
	return tx
}

func cloneExpense(src domain.Expense) domain.Expense {
	dst := src
	dst.AmountTL = cloneFloat(src.AmountTL)
	dst.AmountUSD = cloneFloat(src.AmountUSD)
	dst.ExchangeRate = cloneFloat(src.ExchangeRate)
	return dst
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func compareByDate(aAt time.Time, aID string, bAt time.Time, bID string) int {
	if aAt.Equal(bAt) {
		return cmpString(aID, bID)
	}
	if aAt.Before(bAt) {
		return -1
	}
	return 1
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
