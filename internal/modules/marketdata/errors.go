package marketdata

import (
	"fmt"
	"strings"
)

// NoDataError is returned when no usable price history exists for any
// of the requested symbols.
type NoDataError struct {
	Symbols []string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no usable price data for symbols: %s", strings.Join(e.Symbols, ", "))
}
