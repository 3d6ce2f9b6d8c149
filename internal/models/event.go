package models

// Event types published on the domain event log
const (
	EventProductCreated     = "product_created"
	EventProductUpdated     = "product_updated"
	EventProductDeleted     = "product_deleted"
	EventFavoriteToggled    = "favorite_toggled"
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderDeleted       = "order_deleted"
)

// Event is one entry of the domain event log
type Event struct {
	Offset     int64  `json:"offset"`
	Timestamp  string `json:"timestamp"`
	EventType  string `json:"eventType"`
	ResourceID string `json:"resourceId"`
	Data       any    `json:"data,omitempty"`
}

// EventsResponse is returned by GET /api/events
type EventsResponse struct {
	Events     []Event `json:"events"`
	NextOffset int64   `json:"nextOffset"`
	HasMore    bool    `json:"hasMore"`
	Count      int     `json:"count"`
}

// SeedData is the shape of the optional catalog seed file
type SeedData struct {
	Products   []Product   `json:"products"`
	Orders     []Order     `json:"orders"`
	Promotions []Promotion `json:"promotions"`
	Messages   []Message   `json:"messages"`
}
