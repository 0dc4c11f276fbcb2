package domain

import "testing"

func TestOrder_FilledQuantity(t *testing.T) {
	o := &Order{Quantity: 10, RemainingQuantity: 3}
	if got := o.FilledQuantity(); got != 7 {
		t.Errorf("FilledQuantity() = %d, want 7", got)
	}
}

func TestOrder_IsTerminal(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusOpen, false},
		{OrderStatusPartial, false},
		{OrderStatusFilled, true},
		{OrderStatusCancelled, true},
		{OrderStatusExpired, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := &Order{Status: tt.status}
			if got := o.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_Cancellable(t *testing.T) {
	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusOpen, true},
		{OrderStatusPartial, true},
		{OrderStatusFilled, false},
		{OrderStatusCancelled, false},
		{OrderStatusExpired, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := &Order{Status: tt.status}
			if got := o.Cancellable(); got != tt.want {
				t.Errorf("Cancellable() = %v, want %v", got, tt.want)
			}
		})
	}
}
