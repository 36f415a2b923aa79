package model

import (
	"fmt"
	"time"
)

// FormatDocumentNumber builds the travel document number that follows lastID,
// e.g. lastID 100 -> "TD-00101".
func FormatDocumentNumber(lastID uint) string {
	return fmt.Sprintf("TD-%05d", lastID+1)
}

// FormatReference builds a sponsorship form reference from the wall clock,
// truncated to the second: "DEG-20250101-120000".
func FormatReference(kind FormKind, t time.Time) string {
	return kind.Prefix() + "-" + t.Format("20060102-150405")
}
