package devserver

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"not null"                 json:"email"`
	PhoneNumber  string `json:"phone_number"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	IsAdmin      bool   `gorm:"default:false"            json:"is_admin"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Stock       uint    `json:"stock"`
}

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// Order is created in pending state when a checkout session is issued and
// marked paid exactly once when the session is verified.
type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint        `gorm:"index;not null"           json:"-"`
	SessionID string      `gorm:"uniqueIndex;not null"     json:"-"`
	Number    string      `gorm:"unique;not null"          json:"number"`
	Status    string      `gorm:"not null"                 json:"status"`
	Total     float64     `gorm:"not null"                 json:"total"`
	Items     []OrderItem `gorm:"foreignKey:OrderID"       json:"items"`
	CreatedAt time.Time   `json:"created_at"`

	FullName       string `json:"-"`
	StreetAddress  string `json:"-"`
	ApartmentSuite string `json:"-"`
	City           string `json:"-"`
	PostalCode     string `json:"-"`
	Country        string `json:"-"`
	PhoneNumber    string `json:"-"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID   uint    `gorm:"index;not null"           json:"-"`
	ProductID uint    `gorm:"not null"                 json:"product_id"`
	Name      string  `gorm:"not null"                 json:"name"`
	UnitPrice float64 `gorm:"not null"                 json:"price"`
	Quantity  uint    `gorm:"not null"                 json:"quantity"`
}
