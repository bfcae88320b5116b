package domain

import "time"

const (
	BrandEtsy       = "etsy"
	BrandLamiaferis = "lamiaferis"

	// AllStores is the store filter value that disables store scoping.
	AllStores = "all"
)

type SaleType string

const (
	SaleTypeOrganic  SaleType = "ORGANIC"
	SaleTypeGiveaway SaleType = "GIVEAWAY"
	SaleTypeSale     SaleType = "SALE"
)

func (t SaleType) Valid() bool {
	switch t {
	case SaleTypeOrganic, SaleTypeGiveaway, SaleTypeSale:
		return true
	default:
		return false
	}
}

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CostUSD   float64   `json:"cost_usd"`
	CreatedAt time.Time `json:"created_at"`
}

// Sale is one storefront order line. ProfitUSD and ProfitTL are derived at
// write time and stored denormalized.
type Sale struct {
	ID               string    `json:"id"`
	Date             time.Time `json:"date"`
	Store            string    `json:"store"`
	Type             SaleType  `json:"type"`
	ProductID        string    `json:"product_id"`
	ProductName      string    `json:"product_name,omitempty"`
	Quantity         int       `json:"quantity"`
	OrderNo          string    `json:"order_no"`
	BuyerPaid        float64   `json:"buyer_paid"`
	FeesCredits      float64   `json:"fees_credits"`
	Tax              float64   `json:"tax"`
	TotalSalePriceTL float64   `json:"total_sale_price_tl"`
	ProductCost      float64   `json:"product_cost"`
	ShippingCost     float64   `json:"shipping_cost"`
	ProfitUSD        float64   `json:"profit_usd"`
	ProfitTL         float64   `json:"profit_tl"`
	DiscountRate     *int      `json:"discount_rate,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type SaleRequest struct {
	Date             string   `json:"date"`
	Store            string   `json:"store"`
	Type             string   `json:"type"`
	ProductID        string   `json:"product_id"`
	Quantity         int      `json:"quantity"`
	OrderNo          string   `json:"order_no"`
	BuyerPaid        *float64 `json:"buyer_paid"`
	FeesCredits      *float64 `json:"fees_credits"`
	Tax              *float64 `json:"tax"`
	TotalSalePriceTL *float64 `json:"total_sale_price_tl"`
	ProductCost      *float64 `json:"product_cost"`
	ShippingCost     *float64 `json:"shipping_cost"`
	DiscountRate     *int     `json:"discount_rate,omitempty"`
	// Profit fields are accepted for compatibility with older clients and
	// always overwritten by the server side calculation.
	ProfitUSD *float64 `json:"profit_usd,omitempty"`
	ProfitTL  *float64 `json:"profit_tl,omitempty"`
}

// Expense amounts are nullable: at least one of AmountTL/AmountUSD is set.
type Expense struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Store        string    `json:"store"`
	Category     string    `json:"category"`
	AmountTL     *float64  `json:"amount_tl,omitempty"`
	AmountUSD    *float64  `json:"amount_usd,omitempty"`
	ExchangeRate *float64  `json:"exchange_rate,omitempty"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ExpenseRequest struct {
	Date         string   `json:"date"`
	Store        string   `json:"store"`
	Category     string   `json:"category"`
	AmountTL     *float64 `json:"amount_tl,omitempty"`
	AmountUSD    *float64 `json:"amount_usd,omitempty"`
	ExchangeRate *float64 `json:"exchange_rate,omitempty"`
	Description  string   `json:"description"`
}

type LamiaStore struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CommissionRate struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
}

// PosTransaction is a card settlement. CommissionRateSnapshot is frozen at
// creation and Net is derived from it.
type PosTransaction struct {
	ID                     string    `json:"id"`
	Date                   time.Time `json:"date"`
	StoreID                string    `json:"store_id"`
	StoreName              string    `json:"store_name,omitempty"`
	Amount                 float64   `json:"amount"`
	CommissionRateID       string    `json:"commission_rate_id"`
	CommissionLabel        string    `json:"commission_label,omitempty"`
	CommissionRateSnapshot float64   `json:"commission_rate_snapshot"`
	Net                    float64   `json:"net"`
	CreatedAt              time.Time `json:"created_at"`
}

type PosTransactionRequest struct {
	Date             string   `json:"date"`
	StoreID          string   `json:"store_id"`
	Amount           *float64 `json:"amount"`
	CommissionRateID string   `json:"commission_rate_id"`
}

type CashTransaction struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	StoreID   string    `json:"store_id"`
	StoreName string    `json:"store_name,omitempty"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

type CashTransactionRequest struct {
	Date    string   `json:"date"`
	StoreID string   `json:"store_id"`
	Amount  *float64 `json:"amount"`
	Note    string   `json:"note"`
}

type ProductCreateRequest struct {
	Name    string   `json:"name"`
	CostUSD *float64 `json:"cost_usd"`
}

type LamiaStoreCreateRequest struct {
	Name string `json:"name"`
}

type CommissionRateRequest struct {
	Label string   `json:"label"`
	Rate  *float64 `json:"rate"`
}

// DateRange is inclusive on both ends.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// ReportFilter is the validated input of one report computation.
type ReportFilter struct {
	StoreID   string    `json:"store_id"`
	DateRange DateRange `json:"date_range"`
	Locale    string    `json:"locale"`
}

// ReportQuery is the raw, unvalidated filter as received from a caller.
type ReportQuery struct {
	StoreID string
	From    string
	To      string
	Locale  string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	Brand         string    `json:"brand"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
