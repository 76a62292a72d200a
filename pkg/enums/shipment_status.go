package enums

import "fmt"

// ShipmentStatus describes the allowed values for the `status` column in
// shipments.
type ShipmentStatus string

const (
	ShipmentStatusPending        ShipmentStatus = "pending"
	ShipmentStatusLabelCreated   ShipmentStatus = "label_created"
	ShipmentStatusPickedUp       ShipmentStatus = "picked_up"
	ShipmentStatusInTransit      ShipmentStatus = "in_transit"
	ShipmentStatusOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentStatusDelivered      ShipmentStatus = "delivered"
	ShipmentStatusFailed         ShipmentStatus = "failed"
	ShipmentStatusReturned       ShipmentStatus = "returned"
	ShipmentStatusCancelled      ShipmentStatus = "cancelled"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPending,
	ShipmentStatusLabelCreated,
	ShipmentStatusPickedUp,
	ShipmentStatusInTransit,
	ShipmentStatusOutForDelivery,
	ShipmentStatusDelivered,
	ShipmentStatusFailed,
	ShipmentStatusReturned,
	ShipmentStatusCancelled,
}

var shipmentStatusLabels = map[ShipmentStatus]string{
	ShipmentStatusPending:        "Label created",
	ShipmentStatusLabelCreated:   "Label created, awaiting pickup",
	ShipmentStatusPickedUp:       "Package picked up by carrier",
	ShipmentStatusInTransit:      "In transit to destination",
	ShipmentStatusOutForDelivery: "Out for delivery today",
	ShipmentStatusDelivered:      "Package delivered",
	ShipmentStatusFailed:         "Delivery attempt failed",
	ShipmentStatusReturned:       "Package returned to sender",
	ShipmentStatusCancelled:      "Shipment cancelled",
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical shipment status enum.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Label returns the human description used when a tracking event is recorded
// without an explicit description. Statuses without a table entry fall back
// to the raw status value.
func (s ShipmentStatus) Label() string {
	if label, ok := shipmentStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseShipmentStatus converts the raw string to ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
