package enums

// EntityType names the record kind an activity or notification points at.
type EntityType string

const (
	EntityTypeContact       EntityType = "contact"
	EntityTypeDeal          EntityType = "deal"
	EntityTypeTask          EntityType = "task"
	EntityTypePurchaseOrder EntityType = "purchase_order"
	EntityTypeShipment      EntityType = "shipment"
	EntityTypeCommunication EntityType = "communication"
	EntityTypeEstimate      EntityType = "estimate"
	EntityTypeInvoice       EntityType = "invoice"
)

var validEntityTypes = []EntityType{
	EntityTypeContact,
	EntityTypeDeal,
	EntityTypeTask,
	EntityTypePurchaseOrder,
	EntityTypeShipment,
	EntityTypeCommunication,
	EntityTypeEstimate,
	EntityTypeInvoice,
}

// IsValid reports whether the value is a known EntityType.
func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}
