package ordersync

import "storefront-api/internal/models"

// Status is the client-side order status vocabulary
type Status string

const (
	StatusPending   Status = "en_attente"
	StatusPreparing Status = "en_preparation"
	// StatusInProgress is a legacy value still accepted from persisted caches.
	// No server status maps to it.
	StatusInProgress Status = "en_cours"
	StatusReady      Status = "pret"
	StatusDelivered  Status = "livre"
	StatusCancelled  Status = "annule"
)

var localStatusByRemote = [...]Status{
	models.OrderPending:    StatusPending,
	models.OrderProcessing: StatusPreparing,
	models.OrderShipped:    StatusReady,
	models.OrderDelivered:  StatusDelivered,
	models.OrderCancelled:  StatusCancelled,
}

// Fails to compile when a server status is added without a mapping above.
var _ = [1]struct{}{}[len(localStatusByRemote)-int(models.OrderStatusCount)]

// LocalStatusFor translates a server status into the client vocabulary
func LocalStatusFor(s models.OrderStatus) Status {
	if s < 0 || int(s) >= len(localStatusByRemote) {
		return StatusPending
	}
	return localStatusByRemote[s]
}

// LocalStatusForName translates a server status name. Unknown names map to StatusPending.
func LocalStatusForName(name string) Status {
	s, err := models.ParseOrderStatus(name)
	if err != nil {
		return StatusPending
	}
	return LocalStatusFor(s)
}

// Valid reports whether s is part of the client vocabulary
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusInProgress, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
