package batch

import (
	"fmt"
)

// ConfigError reports an invalid run parameter. Runs fail with it before any
// collaborator is touched.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// ConnectivityError reports that a pre-flight reachability check against an
// external collaborator failed.
type ConnectivityError struct {
	Target string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Target, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// BalanceError reports that the funding wallet cannot cover a planned run.
// Amounts are satoshis.
type BalanceError struct {
	RequiredSats  int64
	AvailableSats int64
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %.8f BTC, have %.8f BTC",
		float64(e.RequiredSats)/1e8, float64(e.AvailableSats)/1e8)
}
