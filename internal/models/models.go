package models

import "time"

// Identity is the authenticated user as reported by the backend. A nil
// *Identity means "guest".
type Identity struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
}

type Product struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       uint    `json:"stock"`
}

// CartLine is one product in the cart. Stock is a snapshot taken when the
// item was added; the authoritative check still happens server-side at
// checkout.
type CartLine struct {
	ProductID uint    `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Stock     uint    `json:"stock"`
	Quantity  uint    `json:"quantity"`
}

type ShippingAddress struct {
	FullName       string `json:"fullName"`
	StreetAddress  string `json:"streetAddress"`
	ApartmentSuite string `json:"apartmentSuite,omitempty"`
	City           string `json:"city"`
	PostalCode     string `json:"postalCode"`
	Country        string `json:"country"`
	PhoneNumber    string `json:"phoneNumber"`
}

type OrderItem struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  uint    `json:"quantity"`
}

type Order struct {
	ID        uint        `json:"id"`
	Number    string      `json:"number"`
	Status    string      `json:"status"`
	Total     float64     `json:"total"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}
