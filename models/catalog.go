package models

// Product is a sellable product in the licensing catalog.
type Product struct {
	ID           string `json:"id"`
	Organisation string `json:"organisation"`
	Name         string `json:"name"`
	IsActive     bool   `json:"isActive"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// Plan is a purchasable plan of a product.
type Plan struct {
	ID              string  `json:"id"`
	Organisation    string  `json:"organisation"`
	Name            string  `json:"name"`
	IsActive        bool    `json:"isActive"`
	ProductID       string  `json:"productId"`
	TierTagID       *string `json:"tierTagId"`
	TrialPeriodDays *int    `json:"trialPeriodDays"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}
