package dbtypes

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineItemsScan(t *testing.T) {
	var items LineItems
	err := items.Scan(`[{"description":"Stall mats 4x6","quantity":10,"unit_price":"42.50"}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Stall mats 4x6", items[0].Description)
	assert.Equal(t, 10, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("42.50")))
}

func TestLineItemsScanMalformedIsEmpty(t *testing.T) {
	items := LineItems{{Description: "stale"}}
	err := items.Scan(`{not json`)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLineItemsScanNil(t *testing.T) {
	items := LineItems{{Description: "stale"}}
	require.NoError(t, items.Scan(nil))
	assert.Empty(t, items)
}

func TestTrackingEventsRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	events := TrackingEvents{{Status: "in_transit", Location: "Louisville, KY", Timestamp: now}}

	val, err := events.Value()
	require.NoError(t, err)

	var scanned TrackingEvents
	require.NoError(t, scanned.Scan(val))
	require.Len(t, scanned, 1)
	assert.Equal(t, "in_transit", scanned[0].Status)
	assert.True(t, now.Equal(scanned[0].Timestamp))
}
