package store

import (
	"context"
	"errors"
	"time"

	"lfpanel/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrDuplicateOrderNo = errors.New("duplicate order number")
)

// RecordQuery scopes a record stream. An empty Store (or domain.AllStores)
// matches every store; From and To are inclusive, zero values are unbounded.
type RecordQuery struct {
	Store string
	From  time.Time
	To    time.Time
}

// Matches reports whether a record with the given store and date falls in
// the query.
func (q RecordQuery) Matches(store string, at time.Time) bool {
	if q.Store != "" && q.Store != domain.AllStores && q.Store != store {
		return false
	}
	if !q.From.IsZero() && at.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && at.After(q.To) {
		return false
	}
	return true
}

// Repository is the storage collaborator. Record streams come back sorted
// by date ascending with their lookups (product name, store name, commission
// label) resolved.
type Repository interface {
	ListSales(ctx context.Context, q RecordQuery) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id string) error

	ListExpenses(ctx context.Context, q RecordQuery) ([]domain.Expense, error)
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	ListPosTransactions(ctx context.Context, q RecordQuery) ([]domain.PosTransaction, error)
	CreatePosTransaction(ctx context.Context, tx domain.PosTransaction) (*domain.PosTransaction, error)
	DeletePosTransaction(ctx context.Context, id string) error

	ListCashTransactions(ctx context.Context, q RecordQuery) ([]domain.CashTransaction, error)
	CreateCashTransaction(ctx context.Context, tx domain.CashTransaction) (*domain.CashTransaction, error)
	DeleteCashTransaction(ctx context.Context, id string) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListLamiaStores(ctx context.Context) ([]domain.LamiaStore, error)
	GetLamiaStore(ctx context.Context, id string) (*domain.LamiaStore, error)
	CreateLamiaStore(ctx context.Context, store domain.LamiaStore) (*domain.LamiaStore, error)

	ListCommissionRates(ctx context.Context) ([]domain.CommissionRate, error)
	GetCommissionRate(ctx context.Context, id string) (*domain.CommissionRate, error)
	CreateCommissionRate(ctx context.Context, rate domain.CommissionRate) (*domain.CommissionRate, error)
	UpdateCommissionRate(ctx context.Context, rate domain.CommissionRate) (*domain.CommissionRate, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, brand string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
