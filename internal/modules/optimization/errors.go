package optimization

import "fmt"

// InsufficientDataError indicates the price table cannot support an
// optimization: fewer than 2 assets or fewer than 2 observations.
// This is a client-input error.
type InsufficientDataError struct {
	Assets int
	Rows   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for optimization: %d assets, %d observations (need at least 2 of each)", e.Assets, e.Rows)
}

// UnknownMethodError indicates an unrecognized optimization method
// name. This is a client-input error.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown optimization method: %q", e.Method)
}

// OptimizationFailedError indicates the numerical routine itself
// failed (for example on a singular covariance matrix). Retrying with
// identical inputs yields an identical failure.
type OptimizationFailedError struct {
	Cause error
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("portfolio optimization failed: %v", e.Cause)
}

func (e *OptimizationFailedError) Unwrap() error {
	return e.Cause
}
