package upstream

// Entities mirror the upstream API responses one to one; the gateway never
// derives state from them beyond display mapping.

// User is the authenticated account as reported by the upstream API.
type User struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Stores      []string `json:"stores"`
	Image       string   `json:"image,omitempty"`
}

// Store is a managed storefront. ClientID/ClientSecret are write-only: the
// upstream API accepts them on creation and never returns them.
type Store struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
	Image  string `json:"image,omitempty"`
}

// Store status values accepted by the upstream API.
const (
	StoreStatusActive    = "active"
	StoreStatusInactive  = "inactive"
	StoreStatusSuspended = "suspended"
	StoreStatusPending   = "pending"
)

// OrderItem is one line of an order.
type OrderItem struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is read-only in the dashboard.
type Order struct {
	ID        string      `json:"_id"`
	Customer  string      `json:"customer"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    string      `json:"status"`
	StoreID   string      `json:"storeId"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
}

// Product is an inventory row.
type Product struct {
	ID        string  `json:"_id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	OnHand    int     `json:"onHand"`
	Available int     `json:"available"`
	CostPrice float64 `json:"costPrice"`
	SellPrice float64 `json:"sellPrice"`
	StoreID   string  `json:"storeId"`
}

// ProductHistory is one purchase-history row.
type ProductHistory struct {
	ID               string  `json:"_id"`
	SKU              string  `json:"sku"`
	Name             string  `json:"name"`
	Supplier         string  `json:"supplier"`
	PurchaseQty      int     `json:"purchaseQty"`
	LossQty          int     `json:"lossQty"`
	WarehouseSentQty int     `json:"warehouseSentQty"`
	CostPrice        float64 `json:"costPrice"`
	SellPrice        float64 `json:"sellPrice"`
	StoreID          string  `json:"storeID"`
	Date             string  `json:"date"`
}

// HistorySummary is the server-side aggregate displayed above the purchase
// history table. It is never recomputed by the gateway.
type HistorySummary struct {
	TotalPurchase      int     `json:"totalPurchase"`
	TotalLoss          int     `json:"totalLoss"`
	TotalCost          float64 `json:"totalCost"`
	TotalWarehouseSent int     `json:"totalWarehouseSent"`
}

// Customer is a read-only customer record.
type Customer struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	StoreID   string `json:"storeId"`
	CreatedAt string `json:"createdAt"`
}

// FailedUpload is a rejected ingestion row, purely diagnostic.
type FailedUpload struct {
	ID          string            `json:"_id"`
	StoreID     string            `json:"storeId"`
	RowData     map[string]string `json:"rowData"`
	Reason      string            `json:"reason"`
	ErrorDetail string            `json:"errorDetail"`
	CreatedAt   string            `json:"createdAt"`
}
