package shipments

import (
	"fmt"
	"net/url"
	"strings"
)

type carrierLink struct {
	match  string
	format string
}

// carrierLinks is checked in order; the first substring match wins. Freight
// carriers the office actually uses sit alongside the parcel majors.
var carrierLinks = []carrierLink{
	{match: "ups", format: "https://www.ups.com/track?tracknum=%s"},
	{match: "fedex", format: "https://www.fedex.com/apps/fedextrack/?tracknumbers=%s"},
	{match: "usps", format: "https://tools.usps.com/go/TrackConfirmAction?qtc_tLabels1=%s"},
	{match: "estes", format: "https://www.estes-express.com/myestes/shipment-tracking/?search=%s"},
	{match: "xpo", format: "https://track.xpo.com/tracking?number=%s"},
	{match: "r+l", format: "https://www.rlcarriers.com/freight/shipping/shipment-tracing?pro=%s"},
	{match: "r&l", format: "https://www.rlcarriers.com/freight/shipping/shipment-tracing?pro=%s"},
	{match: "rl", format: "https://www.rlcarriers.com/freight/shipping/shipment-tracing?pro=%s"},
	{match: "old dominion", format: "https://www.odfl.com/us/en/tools/tracking.html?pro=%s"},
	{match: "odfl", format: "https://www.odfl.com/us/en/tools/tracking.html?pro=%s"},
}

// TrackingURL builds the carrier's public tracking link for a number.
// Unknown carriers fall back to a web search.
func TrackingURL(carrier, trackingNumber string) string {
	lowered := strings.ToLower(carrier)
	for _, link := range carrierLinks {
		if strings.Contains(lowered, link.match) {
			return fmt.Sprintf(link.format, trackingNumber)
		}
	}
	return fmt.Sprintf("https://www.google.com/search?q=%s+tracking+%s", url.QueryEscape(carrier), trackingNumber)
}
