package exchange

import "fmt"

// FetchError reports a failed price history request (network, auth, status, or decode).
type FetchError struct {
	Symbol string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Symbol, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AuthError reports a failed token acquisition. Without a token no pair can proceed.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("acquire token: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("acquire token: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
