package enums

import "fmt"

// NotificationType categorizes in-app notifications for UI filtering.
type NotificationType string

const (
	NotificationTypeDealUpdate      NotificationType = "deal_update"
	NotificationTypePOUpdate        NotificationType = "po_update"
	NotificationTypeShipmentUpdate  NotificationType = "shipment_update"
	NotificationTypeTaskReminder    NotificationType = "task_reminder"
	NotificationTypeCommunication   NotificationType = "communication"
	NotificationTypeStaleDeal       NotificationType = "stale_deal"
	NotificationTypePaymentReceived NotificationType = "payment_received"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeDealUpdate,
	NotificationTypePOUpdate,
	NotificationTypeShipmentUpdate,
	NotificationTypeTaskReminder,
	NotificationTypeCommunication,
	NotificationTypeStaleDeal,
	NotificationTypePaymentReceived,
}

// IsValid reports whether the value matches the canonical notification type enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts the raw string to NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
