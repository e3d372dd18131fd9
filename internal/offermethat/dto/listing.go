package dto

import "time"

type ListingLight struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Suburb    string    `json:"suburb,omitempty"`
	State     string    `json:"state,omitempty"`
	Postcode  string    `json:"postcode,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	Status    string    `json:"status"`
	Photos    []string  `json:"photos,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Listing struct {
	ListingLight
	Description string          `json:"description,omitempty"`
	Owner       *UserLight      `json:"owner_detail,omitempty"`
	Sellers     []ListingSeller `json:"sellers,omitempty"`
}

type ListingSeller struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
