package enums

import "testing"

func TestShipmentStatusLabelsCoverEveryStatus(t *testing.T) {
	for _, status := range validShipmentStatuses {
		label := status.Label()
		if label == string(status) {
			t.Fatalf("status %s has no label entry, fell back to raw value", status)
		}
	}
}

func TestShipmentStatusLabelCreated(t *testing.T) {
	if got := ShipmentStatusLabelCreated.Label(); got != "Label created, awaiting pickup" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestShipmentStatusLabelFallsBackForUnknown(t *testing.T) {
	if got := ShipmentStatus("teleported").Label(); got != "teleported" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
