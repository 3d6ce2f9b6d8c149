package ordersync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-api/internal/models"
)

func TestLocalStatusFor(t *testing.T) {
	tests := []struct {
		remote   string
		expected Status
	}{
		{"pending", StatusPending},
		{"processing", StatusPreparing},
		{"shipped", StatusReady},
		{"delivered", StatusDelivered},
		{"cancelled", StatusCancelled},
		{"teleported", StatusPending},
		{"", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.expected, LocalStatusForName(tt.remote))
		})
	}
}

func TestLocalStatusFor_CoversEveryServerStatus(t *testing.T) {
	for s := models.OrderStatus(0); s < models.OrderStatusCount; s++ {
		assert.True(t, LocalStatusFor(s).Valid(), s.String())
	}
	assert.Equal(t, StatusPending, LocalStatusFor(models.OrderStatusCount))
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusInProgress.Valid(), "Legacy value stays recognized")
	assert.False(t, Status("shipped").Valid())
}
