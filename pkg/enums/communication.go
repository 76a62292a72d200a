package enums

import "fmt"

// CommunicationType is the channel a communication happened on.
type CommunicationType string

const (
	CommunicationTypeEmail CommunicationType = "email"
	CommunicationTypeSMS   CommunicationType = "sms"
	CommunicationTypeCall  CommunicationType = "call"
	CommunicationTypeNote  CommunicationType = "note"
)

var validCommunicationTypes = []CommunicationType{
	CommunicationTypeEmail,
	CommunicationTypeSMS,
	CommunicationTypeCall,
	CommunicationTypeNote,
}

// IsValid reports whether the value is a known CommunicationType.
func (c CommunicationType) IsValid() bool {
	for _, candidate := range validCommunicationTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommunicationType converts the raw string to CommunicationType.
func ParseCommunicationType(value string) (CommunicationType, error) {
	for _, candidate := range validCommunicationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid communication type %q", value)
}

// CommunicationDirection distinguishes inbound, outbound, and internal notes.
type CommunicationDirection string

const (
	CommunicationDirectionInbound  CommunicationDirection = "inbound"
	CommunicationDirectionOutbound CommunicationDirection = "outbound"
	CommunicationDirectionInternal CommunicationDirection = "internal"
)

var validCommunicationDirections = []CommunicationDirection{
	CommunicationDirectionInbound,
	CommunicationDirectionOutbound,
	CommunicationDirectionInternal,
}

// IsValid reports whether the value is a known CommunicationDirection.
func (c CommunicationDirection) IsValid() bool {
	for _, candidate := range validCommunicationDirections {
		if candidate == c {
			return true
		}
	}
	return false
}

// CommunicationStatus records the delivery outcome of a communication.
type CommunicationStatus string

const (
	CommunicationStatusDraft    CommunicationStatus = "draft"
	CommunicationStatusSent     CommunicationStatus = "sent"
	CommunicationStatusFailed   CommunicationStatus = "failed"
	CommunicationStatusReceived CommunicationStatus = "received"
	CommunicationStatusLogged   CommunicationStatus = "logged"
)

var validCommunicationStatuses = []CommunicationStatus{
	CommunicationStatusDraft,
	CommunicationStatusSent,
	CommunicationStatusFailed,
	CommunicationStatusReceived,
	CommunicationStatusLogged,
}

// IsValid reports whether the value is a known CommunicationStatus.
func (c CommunicationStatus) IsValid() bool {
	for _, candidate := range validCommunicationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}
