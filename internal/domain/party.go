package domain

import "github.com/shopspring/decimal"

// Customer is the slice of the party master data the financing engine needs.
// The engine only references customers; it never manages them.
type Customer struct {
	ID      int32  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Product is the slice of the product master data the financing engine needs.
type Product struct {
	ID       int32           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
}

// CustomerRepository is the lookup collaborator for party master data.
type CustomerRepository interface {
	GetByID(id int32) (*Customer, error)
}

// ProductRepository is the lookup collaborator for product master data.
type ProductRepository interface {
	GetByID(id int32) (*Product, error)
}
