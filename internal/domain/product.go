package domain

import "time"

// Product is a catalog entry. Prices are whole rupees.
type Product struct {
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	NameUR        string    `json:"name_ur"`
	Description   string    `json:"description"`
	DescriptionUR string    `json:"description_ur"`
	Price         int64     `json:"price"`
	Currency      string    `json:"currency"`
	ImageURL      string    `json:"image_url"`
	Active        bool      `json:"active"`
	Stock         int       `json:"stock"`
	Category      string    `json:"category"`
	CategoryUR    string    `json:"category_ur"`
	CreatedAt     time.Time `json:"created_at"`
}

// Available reports whether the product can be shown to shoppers.
func (p Product) Available() bool {
	return p.Active && p.Stock > 0
}

// LocalizedName falls back to the English name when no Urdu name is set.
func (p Product) LocalizedName(lang Language) string {
	if lang == LanguageUrdu && p.NameUR != "" {
		return p.NameUR
	}
	return p.Name
}

// LocalizedDescription falls back to the English description when no Urdu text is set.
func (p Product) LocalizedDescription(lang Language) string {
	if lang == LanguageUrdu && p.DescriptionUR != "" {
		return p.DescriptionUR
	}
	return p.Description
}
