package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents a user in the system
type User struct {
	gorm.Model
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email" gorm:"uniqueIndex"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
	FranchiseID  *uint  `json:"franchise_id"`
}

// Franchise represents a franchisee business unit
type Franchise struct {
	gorm.Model
	UserID             uint       `json:"user_id"`
	CompanyName        string     `json:"company_name"`
	Siret              string     `json:"siret" gorm:"uniqueIndex"`
	Address            string     `json:"address"`
	City               string     `json:"city"`
	ZipCode            string     `json:"zip_code"`
	RoyaltyRate        float64    `json:"royalty_rate" gorm:"default:4"`
	EntryFee           float64    `json:"entry_fee" gorm:"default:50000"`
	EntryFeePaid       bool       `json:"entry_fee_paid"`
	EntryFeePaidAt     *time.Time `json:"entry_fee_paid_at"`
	Status             string     `json:"status" gorm:"default:PENDING"`
	KbisDocument       string     `json:"kbis_document"`
	IDCardDocument     string     `json:"id_card_document"`
	DocumentsValidated bool       `json:"documents_validated"`
	User               User       `gorm:"foreignKey:UserID" json:"user"`
}

// Vehicle represents a food truck owned by the network
type Vehicle struct {
	gorm.Model
	FranchiseID       *uint      `json:"franchise_id"`
	RegistrationPlate string     `json:"registration_plate" gorm:"uniqueIndex"`
	VehicleModel      string     `json:"model" gorm:"column:model"`
	Status            string     `json:"status" gorm:"default:AVAILABLE"`
	Location          string     `json:"location"`
	AcquisitionDate   *time.Time `json:"acquisition_date"`
	Franchise         *Franchise `gorm:"foreignKey:FranchiseID" json:"franchise,omitempty"`
}

// Maintenance represents a maintenance record for a vehicle
type Maintenance struct {
	gorm.Model
	VehicleID   uint      `json:"vehicle_id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Cost        float64   `json:"cost"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status" gorm:"default:SCHEDULED"`
	Vehicle     Vehicle   `gorm:"foreignKey:VehicleID" json:"vehicle"`
}

// ProductCategory groups products for catalog display
type ProductCategory struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex"`
	Description string `json:"description"`
}

// Product represents a catalog item sourced from the warehouses
type Product struct {
	gorm.Model
	Name        string          `json:"name"`
	Sku         string          `json:"sku" gorm:"uniqueIndex"`
	Description string          `json:"description"`
	UnitPrice   float64         `json:"unit_price"`
	CategoryID  uint            `json:"category_id"`
	IsActive    bool            `json:"is_active" gorm:"default:true"`
	Category    ProductCategory `gorm:"foreignKey:CategoryID" json:"category"`
}

// Warehouse represents a regional supply warehouse
type Warehouse struct {
	gorm.Model
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	ZipCode  string `json:"zip_code"`
	Capacity int    `json:"capacity"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// Stock tracks quantity per (product, warehouse) pair.
// Invariant: ReservedQty never exceeds Quantity; enforced at reservation time.
type Stock struct {
	gorm.Model
	ProductID       uint       `json:"product_id" gorm:"uniqueIndex:idx_stock_product_warehouse"`
	WarehouseID     uint       `json:"warehouse_id" gorm:"uniqueIndex:idx_stock_product_warehouse"`
	Quantity        int        `json:"quantity"`
	ReservedQty     int        `json:"reserved_qty"`
	MinThreshold    int        `json:"min_threshold"`
	LastRestockDate *time.Time `json:"last_restock_date"`
	Product         Product    `gorm:"foreignKey:ProductID" json:"product"`
	Warehouse       Warehouse  `gorm:"foreignKey:WarehouseID" json:"warehouse"`
}

// Order represents a purchase request from a franchise
type Order struct {
	gorm.Model
	OrderNumber           string         `json:"order_number" gorm:"uniqueIndex"`
	FranchiseID           uint           `json:"franchise_id"`
	Status                string         `json:"status" gorm:"default:DRAFT"`
	RequestedDeliveryDate *time.Time     `json:"requested_delivery_date"`
	TotalAmount           float64        `json:"total_amount"`
	Notes                 string         `json:"notes"`
	Attachments           datatypes.JSON `json:"attachments"`
	Items                 []OrderItem    `gorm:"foreignKey:OrderID" json:"items"`
	Franchise             Franchise      `gorm:"foreignKey:FranchiseID" json:"franchise"`
}

// OrderItem links an Order to a Product sourced from a Warehouse
type OrderItem struct {
	gorm.Model
	OrderID     uint      `json:"order_id"`
	ProductID   uint      `json:"product_id"`
	WarehouseID uint      `json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	TotalPrice  float64   `json:"total_price"`
	Product     Product   `gorm:"foreignKey:ProductID" json:"product"`
	Warehouse   Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse"`
}

// Invoice represents a financial document tied to a franchise
type Invoice struct {
	gorm.Model
	InvoiceNumber string     `json:"invoice_number" gorm:"uniqueIndex"`
	FranchiseID   uint       `json:"franchise_id"`
	OrderID       *uint      `json:"order_id"`
	Amount        float64    `json:"amount"`
	Description   string     `json:"description"`
	DueDate       time.Time  `json:"due_date"`
	PaymentStatus string     `json:"payment_status" gorm:"default:PENDING"`
	PaidDate      *time.Time `json:"paid_date"`
	Franchise     Franchise  `gorm:"foreignKey:FranchiseID" json:"franchise"`
	Order         *Order     `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// SalesReport records the daily sales figure of a franchise
type SalesReport struct {
	gorm.Model
	FranchiseID   uint      `json:"franchise_id" gorm:"uniqueIndex:idx_sales_franchise_date"`
	ReportDate    time.Time `json:"report_date" gorm:"uniqueIndex:idx_sales_franchise_date"`
	DailySales    float64   `json:"daily_sales"`
	RoyaltyAmount float64   `json:"royalty_amount"`
	Notes         string    `json:"notes"`
	Franchise     Franchise `gorm:"foreignKey:FranchiseID" json:"franchise"`
}

// Notification represents a system notification targeted at a user or a role
type Notification struct {
	gorm.Model
	UserID      *uint          `json:"user_id"`
	TargetRole  string         `json:"target_role"`
	Type        string         `json:"type"`
	Priority    string         `json:"priority" gorm:"default:NORMAL"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        datatypes.JSON `json:"data"`
	Status      string         `json:"status" gorm:"default:UNREAD"`
	RelatedID   *uint          `json:"related_id"`
	RelatedType string         `json:"related_type"`
	ActionURL   string         `json:"action_url"`
}

// AuditLog is an append-only record of state-changing actions.
// Rows are never updated or deleted by the application.
type AuditLog struct {
	gorm.Model
	UserID    *uint          `json:"user_id"`
	Action    string         `json:"action"`
	TableName string         `json:"table_name"`
	RecordID  uint           `json:"record_id"`
	OldValue  datatypes.JSON `json:"old_value"`
	NewValue  datatypes.JSON `json:"new_value"`
	IPAddress string         `json:"ip_address"`
}

// EmailDeadLetter stores outbound emails that could not be delivered,
// so failed sends stay observable instead of vanishing into a log line.
type EmailDeadLetter struct {
	gorm.Model
	Recipients string `json:"recipients"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Error      string `json:"error"`
}

// Constants for status values
const (
	// Franchise lifecycle
	FranchiseStatusPending    = "PENDING"
	FranchiseStatusActive     = "ACTIVE"
	FranchiseStatusSuspended  = "SUSPENDED"
	FranchiseStatusTerminated = "TERMINATED"

	// Order statuses
	OrderStatusDraft         = "DRAFT"
	OrderStatusPending       = "PENDING"
	OrderStatusConfirmed     = "CONFIRMED"
	OrderStatusInPreparation = "IN_PREPARATION"
	OrderStatusShipped       = "SHIPPED"
	OrderStatusDelivered     = "DELIVERED"
	OrderStatusCancelled     = "CANCELLED"
	OrderStatusPaid          = "PAID"

	// Invoice payment statuses
	InvoiceStatusPending   = "PENDING"
	InvoiceStatusPaid      = "PAID"
	InvoiceStatusOverdue   = "OVERDUE"
	InvoiceStatusCancelled = "CANCELLED"

	// Vehicle statuses
	VehicleStatusAvailable   = "AVAILABLE"
	VehicleStatusAssigned    = "ASSIGNED"
	VehicleStatusMaintenance = "MAINTENANCE"
	VehicleStatusRetired     = "RETIRED"

	// Notification statuses
	NotificationStatusUnread   = "UNREAD"
	NotificationStatusRead     = "READ"
	NotificationStatusArchived = "ARCHIVED"

	// Notification priorities
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"

	// Stock adjustment operations
	StockOpAdd    = "ADD"
	StockOpRemove = "REMOVE"
	StockOpSet    = "SET"

	// User roles
	RoleAdmin      = "admin"
	RoleFranchisee = "franchisee"
)

// ValidOrderStatuses enumerates every accepted order status value
var ValidOrderStatuses = []string{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusInPreparation,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusPaid,
}

// IsValidOrderStatus reports whether s is a known order status
func IsValidOrderStatus(s string) bool {
	for _, v := range ValidOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}
