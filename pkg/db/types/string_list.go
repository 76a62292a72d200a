package dbtypes

import "database/sql/driver"

// StringList serializes a list of plain strings (tags, attachment URLs,
// tracking numbers) to a JSON text column with lenient scanning.
type StringList []string

func (s *StringList) Scan(src any) error {
	return scanJSONList(src, s, "StringList")
}

func (s StringList) Value() (driver.Value, error) {
	return valueJSONList(s)
}
