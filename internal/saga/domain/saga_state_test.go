package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSagaState_Status(t *testing.T) {
	tests := []struct {
		name              string
		inventoryReleased bool
		paymentRefunded   bool
		expected          SagaStatus
	}{
		{"pending", false, false, SagaStatusPending},
		{"only inventory", true, false, SagaStatusPartiallyCompensated},
		{"only payment", false, true, SagaStatusPartiallyCompensated},
		{"completed", true, true, SagaStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saga := &SagaState{
				OrderID:           "order-1",
				InventoryReleased: tt.inventoryReleased,
				PaymentRefunded:   tt.paymentRefunded,
			}

			assert.Equal(t, tt.expected, saga.Status())
			assert.Equal(t, tt.expected == SagaStatusCompleted, saga.Completed())
		})
	}
}
