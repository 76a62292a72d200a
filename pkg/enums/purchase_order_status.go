package enums

import "fmt"

// PurchaseOrderStatus describes the allowed values for the `status` column
// in purchase_orders. The set is fixed but has no adjacency graph; callers
// may jump between any two members.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "draft"
	PurchaseOrderStatusQuoteRequested    PurchaseOrderStatus = "quote_requested"
	PurchaseOrderStatusQuoteReceived     PurchaseOrderStatus = "quote_received"
	PurchaseOrderStatusApproved          PurchaseOrderStatus = "approved"
	PurchaseOrderStatusSubmitted         PurchaseOrderStatus = "submitted"
	PurchaseOrderStatusConfirmed         PurchaseOrderStatus = "confirmed"
	PurchaseOrderStatusInProduction      PurchaseOrderStatus = "in_production"
	PurchaseOrderStatusShipped           PurchaseOrderStatus = "shipped"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusDraft,
	PurchaseOrderStatusQuoteRequested,
	PurchaseOrderStatusQuoteReceived,
	PurchaseOrderStatusApproved,
	PurchaseOrderStatusSubmitted,
	PurchaseOrderStatusConfirmed,
	PurchaseOrderStatusInProduction,
	PurchaseOrderStatusShipped,
	PurchaseOrderStatusPartiallyReceived,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (p PurchaseOrderStatus) String() string {
	return string(p)
}

// IsValid reports whether the value matches the canonical purchase order status enum.
func (p PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchaseOrderStatus converts the raw string to PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
