package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one ordered product line on a purchase order.
type LineItem struct {
	SKU         string          `json:"sku,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// LineItems serializes to a JSON text column. Rows written before the
// column existed, or hand-edited to junk, scan as an empty list rather
// than failing the whole query.
type LineItems []LineItem

func (l *LineItems) Scan(src any) error {
	return scanJSONList(src, l, "LineItems")
}

func (l LineItems) Value() (driver.Value, error) {
	return valueJSONList(l)
}

// TrackingEvent is one carrier scan or manual note on a shipment,
// newest first.
type TrackingEvent struct {
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TrackingEvents serializes to a JSON text column with the same
// lenient scanning as LineItems.
type TrackingEvents []TrackingEvent

func (t *TrackingEvents) Scan(src any) error {
	return scanJSONList(src, t, "TrackingEvents")
}

func (t TrackingEvents) Value() (driver.Value, error) {
	return valueJSONList(t)
}

func scanJSONList[T any](src any, dest *T, label string) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		var zero T
		*dest = zero
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("%s: unsupported Scan type %T", label, src)
	}

	if len(raw) == 0 {
		var zero T
		*dest = zero
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		var zero T
		*dest = zero
	}
	return nil
}

func valueJSONList(list any) (driver.Value, error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
