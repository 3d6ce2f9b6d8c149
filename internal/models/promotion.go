package models

import (
	"math"
	"time"
)

// PromotionType selects how a discount is applied
type PromotionType string

const (
	PromotionPercentage PromotionType = "percentage"
	PromotionFixed      PromotionType = "fixed"
)

// Promotion is a discount code valid within a time window
type Promotion struct {
	ID        string        `json:"id"`
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Discount  float64       `json:"discount"`
	Type      PromotionType `json:"type"`
	StartDate time.Time     `json:"startDate"`
	EndDate   time.Time     `json:"endDate"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ActiveAt reports whether the promotion is flagged active and now is within its window
func (p Promotion) ActiveAt(now time.Time) bool {
	return p.Active && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// Apply returns subtotal after the discount, never below zero
func (p Promotion) Apply(subtotal float64) float64 {
	var discounted float64
	switch p.Type {
	case PromotionPercentage:
		discounted = subtotal * (1 - p.Discount/100)
	case PromotionFixed:
		discounted = subtotal - p.Discount
	default:
		discounted = subtotal
	}
	return math.Max(0, discounted)
}

// PromotionDraft is the body of POST /api/promotions
type PromotionDraft struct {
	Code      string        `json:"code" validate:"required"`
	Name      string        `json:"name" validate:"required"`
	Discount  FlexFloat     `json:"discount" validate:"gt=0"`
	Type      PromotionType `json:"type" validate:"required,oneof=percentage fixed"`
	StartDate time.Time     `json:"startDate" validate:"required"`
	EndDate   time.Time     `json:"endDate" validate:"required,gtefield=StartDate"`
}

// PromotionPatch is the body of PUT /api/promotions/{id}. Nil fields are left untouched.
type PromotionPatch struct {
	Code      *string        `json:"code,omitempty"`
	Name      *string        `json:"name,omitempty"`
	Discount  *FlexFloat     `json:"discount,omitempty"`
	Type      *PromotionType `json:"type,omitempty"`
	StartDate *time.Time     `json:"startDate,omitempty"`
	EndDate   *time.Time     `json:"endDate,omitempty"`
	Active    *bool          `json:"active,omitempty"`
}
