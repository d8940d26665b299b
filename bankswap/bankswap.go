// Package bankswap reads and flips the option-byte bit that remaps which
// physical bank backs the active logical address window. Flipping it is
// the only mechanism that promotes a newly-written image to active, and it
// always terminates in a reset: Driver.SetSwap never returns on success.
package bankswap

import "errors"

// ErrSwapFailure indicates the option-byte write or its commit did not
// take effect. Per the error taxonomy this is unrecoverable at the core's
// level: the caller's only remaining option is an infinite loop awaiting
// external reprogramming.
var ErrSwapFailure = errors.New("bankswap: swap commit failed")

// Driver is the bank-swap surface the boot decision core and slot geometry
// consult.
type Driver interface {
	// ReadSwap reports the current state of the swap option-byte bit.
	ReadSwap() (bool, error)

	// SetSwap writes the swap bit and triggers the reset that remaps both
	// banks. On success it does not return to the caller. It only returns
	// (with ErrSwapFailure) if the commit itself could not be performed;
	// per the spec's failure model, option-byte commit is atomic at the
	// device level, so a returned error means the write never happened,
	// not that it partially happened.
	SetSwap(enable bool) error
}
