package enums

import "fmt"

// DealStage describes the allowed values for the `stage` column in deals.
// There is no adjacency graph; any member of the set is reachable from any
// other, and unknown values are rejected before anything is written.
type DealStage string

const (
	DealStageLead             DealStage = "lead"
	DealStageQualified        DealStage = "qualified"
	DealStageProposalSent     DealStage = "proposal_sent"
	DealStageEstimateSent     DealStage = "estimate_sent"
	DealStageEstimateAccepted DealStage = "estimate_accepted"
	DealStageInvoiceSent      DealStage = "invoice_sent"
	DealStageInvoicePaid      DealStage = "invoice_paid"
	DealStageOrderPlaced      DealStage = "order_placed"
	DealStageOrderConfirmed   DealStage = "order_confirmed"
	DealStageShipping         DealStage = "shipping"
	DealStageDelivered        DealStage = "delivered"
	DealStageCompleted        DealStage = "completed"
	DealStageLost             DealStage = "lost"
	DealStageOnHold           DealStage = "on_hold"
)

var validDealStages = []DealStage{
	DealStageLead,
	DealStageQualified,
	DealStageProposalSent,
	DealStageEstimateSent,
	DealStageEstimateAccepted,
	DealStageInvoiceSent,
	DealStageInvoicePaid,
	DealStageOrderPlaced,
	DealStageOrderConfirmed,
	DealStageShipping,
	DealStageDelivered,
	DealStageCompleted,
	DealStageLost,
	DealStageOnHold,
}

// String implements fmt.Stringer.
func (d DealStage) String() string {
	return string(d)
}

// IsValid reports whether the value matches the canonical deal stage enum.
func (d DealStage) IsValid() bool {
	for _, candidate := range validDealStages {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDealStage converts the raw string to DealStage.
func ParseDealStage(value string) (DealStage, error) {
	for _, candidate := range validDealStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal stage %q", value)
}
