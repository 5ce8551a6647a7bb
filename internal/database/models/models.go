package models

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

type User struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string     `json:"username" gorm:"uniqueIndex;not null"`
	Email     string     `json:"email" gorm:"uniqueIndex;not null"`
	Password  string     `json:"-" gorm:"not null"`
	IsActive  bool       `json:"is_active" gorm:"default:true"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Category struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null;index"`
	Description *string   `json:"description" gorm:"type:text"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

type Customer struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;index"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone     *string   `json:"phone" gorm:"type:varchar(50)"`
	Company   *string   `json:"company" gorm:"type:varchar(255)"`
	Status    string    `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sales []Sale `json:"sales,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

type Product struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null;index"`
	Description   *string   `json:"description" gorm:"type:text"`
	SKU           string    `json:"sku" gorm:"column:sku;type:varchar(64);uniqueIndex;not null"`
	Price         string    `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity      int32     `json:"quantity" gorm:"not null;default:0"`
	MinStockLevel int32     `json:"min_stock_level" gorm:"not null;default:0"`
	CategoryID    int64     `json:"category_id" gorm:"not null;index"`
	Status        string    `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

type Sale struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SaleNumber  string    `json:"sale_number" gorm:"type:varchar(32);uniqueIndex;not null"`
	CustomerID  int64     `json:"customer_id" gorm:"not null;index"`
	Subtotal    string    `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	TaxAmount   string    `json:"tax_amount" gorm:"type:decimal(10,2);not null;default:0"`
	TotalAmount string    `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	Notes       *string   `json:"notes" gorm:"type:text"`
	SaleDate    time.Time `json:"sale_date" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Customer  *Customer  `json:"customer,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	SaleItems []SaleItem `json:"sale_items,omitempty" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

type SaleItem struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SaleID     int64     `json:"sale_id" gorm:"not null;index"`
	ProductID  int64     `json:"product_id" gorm:"not null;index"`
	Quantity   int32     `json:"quantity" gorm:"not null"`
	UnitPrice  string    `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	TotalPrice string    `json:"total_price" gorm:"type:decimal(10,2);not null"`
	CreatedAt  time.Time `json:"created_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}
