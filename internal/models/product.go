package models

import "time"

// DefaultProductImage is used when a product is created without an image
const DefaultProductImage = "/product.jpg"

// Product is a catalog entry
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	Stock         int       `json:"stock"`
	Image         string    `json:"image"`
	Favorites     int       `json:"favorites"`
	FavoritedBy   []string  `json:"favoritedBy"`
	OrdersCount   int       `json:"ordersCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OnSale reports whether the product carries a pre-discount price above its current price
func (p Product) OnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// IsFavoritedBy reports whether userID is in the favoritedBy set
func (p Product) IsFavoritedBy(userID string) bool {
	for _, id := range p.FavoritedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of a store
func (p Product) Clone() Product {
	c := p
	c.FavoritedBy = append([]string{}, p.FavoritedBy...)
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		c.OriginalPrice = &v
	}
	return c
}

// ProductDraft is the body of POST /api/products
type ProductDraft struct {
	Name          string     `json:"name" validate:"required"`
	Category      string     `json:"category" validate:"required"`
	Price         *FlexFloat `json:"price" validate:"required,gt=0"`
	OriginalPrice *FlexFloat `json:"originalPrice,omitempty" validate:"omitempty,gte=0"`
	Stock         *FlexInt   `json:"stock" validate:"required,gt=0"`
	Image         string     `json:"image,omitempty"`
}

// ProductPatch is the body of PUT /api/products/{id}. Nil fields are left untouched.
type ProductPatch struct {
	Name          *string    `json:"name,omitempty"`
	Category      *string    `json:"category,omitempty"`
	Price         *FlexFloat `json:"price,omitempty"`
	OriginalPrice *FlexFloat `json:"originalPrice,omitempty"`
	Stock         *FlexInt   `json:"stock,omitempty"`
	Image         *string    `json:"image,omitempty"`
}

// FavoriteRequest is the optional body of POST/DELETE /api/products/{id}/favorite
type FavoriteRequest struct {
	UserID string `json:"userId"`
}
