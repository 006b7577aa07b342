package types

import "errors"

var (
	// ErrInvalidQuoteInput is a degenerate pricing input. Always a local defect.
	ErrInvalidQuoteInput = errors.New("invalid quote input")
	// ErrNotAnchored means neither side of a pool is the anchor asset.
	ErrNotAnchored = errors.New("pool not anchored")
	// ErrInsufficientVenues means fewer venues than required passed the floors.
	ErrInsufficientVenues = errors.New("insufficient venues")
	// ErrSizeExceeded means the assembled transaction is over the byte ceiling.
	ErrSizeExceeded = errors.New("transaction size exceeded")
	// ErrLookupTableUnavailable means a required lookup table did not resolve.
	ErrLookupTableUnavailable = errors.New("lookup table unavailable")
	// ErrQuoteBelowBound means the venue quoted less than the leg's minimum output.
	ErrQuoteBelowBound = errors.New("venue quote below minimum output")
	// ErrRouteMismatch means a venue routed a leg around the simulated pool.
	ErrRouteMismatch = errors.New("route does not trade through the simulated pool")
	// ErrIntentReused means an intent was handed to the submitter twice.
	ErrIntentReused = errors.New("intent already submitted")
	// ErrWalletBusy means another submission holds the wallet.
	ErrWalletBusy = errors.New("wallet busy")
)

// VenueError attaches the venue id to a per-venue failure.
type VenueError struct {
	Venue string
	Err   error
}

func (e *VenueError) Error() string {
	return "venue " + e.Venue + ": " + e.Err.Error()
}

func (e *VenueError) Unwrap() error { return e.Err }
