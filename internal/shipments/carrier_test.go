package shipments

import (
	"strings"
	"testing"
)

func TestTrackingURLKnownCarriers(t *testing.T) {
	cases := []struct {
		carrier string
		number  string
		want    string
	}{
		{"UPS", "1Z999AA10123456784", "https://www.ups.com/track?tracknum=1Z999AA10123456784"},
		{"UPS Freight", "1Z999AA10123456784", "https://www.ups.com/track?tracknum=1Z999AA10123456784"},
		{"FedEx Ground", "449044304137821", "https://www.fedex.com/apps/fedextrack/?tracknumbers=449044304137821"},
		{"usps", "9400100000000000000000", "https://tools.usps.com/go/TrackConfirmAction?qtc_tLabels1=9400100000000000000000"},
		{"Estes Express", "123456789", "https://www.estes-express.com/myestes/shipment-tracking/?search=123456789"},
		{"XPO Logistics", "555000111", "https://track.xpo.com/tracking?number=555000111"},
		{"R+L Carriers", "98765", "https://www.rlcarriers.com/freight/shipping/shipment-tracing?pro=98765"},
		{"Old Dominion", "44556", "https://www.odfl.com/us/en/tools/tracking.html?pro=44556"},
	}
	for _, tc := range cases {
		if got := TrackingURL(tc.carrier, tc.number); got != tc.want {
			t.Errorf("TrackingURL(%q, %q) = %q, want %q", tc.carrier, tc.number, got, tc.want)
		}
	}
}

func TestTrackingURLUnknownCarrierFallsBackToSearch(t *testing.T) {
	got := TrackingURL("Bob's Hay Hauling", "TRK-42")
	if !strings.HasPrefix(got, "https://www.google.com/search?q=") {
		t.Fatalf("expected search fallback, got %q", got)
	}
	if !strings.Contains(got, "Bob%27s+Hay+Hauling") {
		t.Fatalf("expected escaped carrier name in %q", got)
	}
	if !strings.Contains(got, "TRK-42") {
		t.Fatalf("expected tracking number in %q", got)
	}
}
